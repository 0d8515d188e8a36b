package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"monitorHub/config"
	"monitorHub/internal/cache"
	"monitorHub/internal/ctx"
	"monitorHub/internal/global"
	"monitorHub/internal/repo"
	"monitorHub/internal/services"
	"monitorHub/internal/types"
	"monitorHub/pkg/tools"
)

// check_cluster_status 集群接入诊断命令。
// 退出码: 0 SUCCESS, 1 WARNING, 2 ERROR/NOT_FOUND。
func main() {
	var (
		clusterId = flag.String("cluster-id", "", "待诊断的集群 ID")
		tenantId  = flag.String("tenant-id", "default", "租户 ID")
		format    = flag.String("format", "text", "输出格式: text / json")
		timeout   = flag.Int("timeout", 60, "整体超时, 秒")
		verbose   = flag.Bool("verbose", false, "输出每项检查的明细字段")
	)
	flag.Parse()

	if *clusterId == "" {
		fmt.Fprintln(os.Stderr, "--cluster-id 不能为空")
		os.Exit(2)
	}

	global.Config = config.InitConfig()

	runCtx, cancel := context.WithTimeout(context.Background(), time.Duration(*timeout)*time.Second)
	defer cancel()

	dbRepo := repo.NewRepoEntry()
	rCache := cache.NewEntryCache()
	services.NewServices(ctx.NewContext(runCtx, dbRepo, rCache))

	report, err := services.ClusterCheckService.CheckCluster(*tenantId, *clusterId)
	if err != nil {
		fmt.Fprintf(os.Stderr, "校验失败: %s\n", err.Error())
		os.Exit(2)
	}

	switch *format {
	case "json":
		raw, merr := tools.JsonMarshal(report)
		if merr != nil {
			fmt.Fprintf(os.Stderr, "序列化报告失败: %s\n", merr.Error())
			os.Exit(2)
		}
		fmt.Println(string(raw))
	default:
		printTextReport(report, *verbose)
	}

	os.Exit(report.ExitCode())
}

func printTextReport(report types.ClusterCheckReport, verbose bool) {
	fmt.Printf("集群: %s\n", report.ClusterId)
	fmt.Printf("总体状态: %s\n", report.Status)
	fmt.Printf("耗时: %.2fs\n\n", report.ExecutionTime)

	for _, component := range report.Components {
		fmt.Printf("%-22s %s\n", component.Name, component.Status)
		for _, msg := range component.Issues {
			fmt.Printf("    %s\n", msg)
		}
		for _, msg := range component.Warnings {
			fmt.Printf("    警告: %s\n", msg)
		}
		if verbose && len(component.Details) > 0 {
			keys := make([]string, 0, len(component.Details))
			for key := range component.Details {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			for _, key := range keys {
				fmt.Printf("    %s=%v\n", key, component.Details[key])
			}
		}
	}

	if len(report.Issues) > 0 {
		fmt.Printf("\n共 %d 个问题, %d 条警告\n", len(report.Issues), len(report.Warnings))
	}
}
