package services

import (
	"fmt"
	"sort"
	"strings"

	"monitorHub/internal/ctx"
	"monitorHub/internal/errs"
	"monitorHub/internal/global"
	"monitorHub/internal/models"
	"monitorHub/internal/types"
	"monitorHub/pkg/bcsstorage"
	"monitorHub/pkg/kubernetesx"
	"monitorHub/pkg/tools"

	"github.com/zeromicro/go-zero/core/logc"
	"golang.org/x/sync/errgroup"
)

// 审计跳过的系统命名空间和系统服务名
var (
	ignoreNamespaces = map[string]bool{"kube-system": true}
	ignoreNames      = map[string]bool{"kubernetes": true}
)

// 各来源拉取时的字段投影，限制存储网关返回体大小
var storageFieldProjection = map[string][]string{
	types.ResourceKindPod:       {"resourceName", "namespace", "data.metadata.resourceVersion", "data.status.phase"},
	types.ResourceKindService:   {"resourceName", "namespace", "data.spec.type", "data.spec.clusterIP", "data.spec.externalIPs"},
	types.ResourceKindNode:      {"resourceName", "data.metadata.resourceVersion", "data.status.phase"},
	types.ResourceKindEndpoints: {"resourceName", "namespace", "data.subsets"},
	types.ResourceKindWorkload:  {"resourceName", "namespace", "data.kind", "data.metadata.resourceVersion"},
}

// 本地镜像缺席的资源类别，审计时只要求两个来源
var kindsWithoutLocalMirror = map[string]bool{
	types.ResourceKindNode:      true,
	types.ResourceKindEndpoints: true,
}

type (
	consistencyCheckService struct {
		ctx     *ctx.Context
		storage bcsstorage.Client
		// newClusterClient 按集群记录构建 API 客户端，测试时可替换
		newClusterClient func(models.ClusterRecord) (*kubernetesx.Client, error)
	}

	// InterConsistencyCheckService 三路一致性审计
	InterConsistencyCheckService interface {
		Audit(req types.AuditRequest) (types.AuditResult, error)
	}
)

func newInterConsistencyCheckService(ctx *ctx.Context) InterConsistencyCheckService {
	return &consistencyCheckService{
		ctx: ctx,
		storage: bcsstorage.NewClient(bcsstorage.ClientConfig{
			Endpoint: global.Config.Bcs.StorageEndpoint,
			Token:    global.Config.Bcs.Token,
			Timeout:  global.Config.Bcs.Timeout,
		}),
		newClusterClient: func(c models.ClusterRecord) (*kubernetesx.Client, error) {
			return kubernetesx.NewClusterClient(c.DomainName, c.Port, c.ApiKeyContent)
		},
	}
}

// Audit 并发拉取三个来源，单源失败按空集处理并记为 issue，不中断整体
func (s *consistencyCheckService) Audit(req types.AuditRequest) (types.AuditResult, error) {
	cluster, err := s.ctx.DB.Cluster().Get(req.TenantId, req.ClusterId)
	if err != nil {
		return types.AuditResult{}, err
	}
	if !cluster.IsOperational() {
		return types.AuditResult{}, errs.NewConflict("集群 %s 非运行状态, 无法审计", req.ClusterId)
	}

	var (
		fromStorage map[string]types.ComparisonTuple
		fromApi     map[string]types.ComparisonTuple
		fromLocal   map[string]types.ComparisonTuple
		// 下标固定对应 bcs_storage / api_server / local_db，三协程互不相扰
		sourceIssues [3]string
	)

	g := new(errgroup.Group)
	g.Go(func() error {
		m, ferr := s.fetchFromStorage(req)
		if ferr != nil {
			logc.Errorf(s.ctx.Ctx, "存储网关拉取失败: %s", ferr.Error())
			sourceIssues[0] = fmt.Sprintf("[%s] [cluster=%s] 拉取失败: %s", types.SourceBcsStorage, req.ClusterId, ferr.Error())
			m = map[string]types.ComparisonTuple{}
		}
		fromStorage = m
		return nil
	})
	g.Go(func() error {
		m, ferr := s.fetchFromApi(req, cluster)
		if ferr != nil {
			logc.Errorf(s.ctx.Ctx, "集群 API 拉取失败: %s", ferr.Error())
			sourceIssues[1] = fmt.Sprintf("[%s] [cluster=%s] 拉取失败: %s", types.SourceApiServer, req.ClusterId, ferr.Error())
			m = map[string]types.ComparisonTuple{}
		}
		fromApi = m
		return nil
	})
	g.Go(func() error {
		m, ferr := s.fetchFromLocal(req)
		if ferr != nil {
			logc.Errorf(s.ctx.Ctx, "本地镜像查询失败: %s", ferr.Error())
			sourceIssues[2] = fmt.Sprintf("[%s] [cluster=%s] 查询失败: %s", types.SourceLocalDB, req.ClusterId, ferr.Error())
			m = map[string]types.ComparisonTuple{}
		}
		fromLocal = m
		return nil
	})
	g.Wait()

	result := diffSources(req, fromStorage, fromApi, fromLocal)
	for _, issue := range sourceIssues {
		if issue != "" {
			result.Issues = append(result.Issues, issue)
			result.Status = types.CheckStatusError
		}
	}

	return result, nil
}

// diffSources 以实例键外连接三个来源并给出漂移集合。
// 少于期望来源数、或各来源投影不一致的实例进入漂移表。
func diffSources(req types.AuditRequest, fromStorage, fromApi, fromLocal map[string]types.ComparisonTuple) types.AuditResult {
	sources := map[string]map[string]types.ComparisonTuple{
		types.SourceBcsStorage: fromStorage,
		types.SourceApiServer:  fromApi,
		types.SourceLocalDB:    fromLocal,
	}
	expected := 3
	if kindsWithoutLocalMirror[req.ResourceKind] {
		expected = 2
		delete(sources, types.SourceLocalDB)
	}

	keys := make(map[string]bool)
	for _, m := range sources {
		for k := range m {
			keys[k] = true
		}
	}

	drift := make(map[string]map[string]types.ComparisonTuple)
	orderedKeys := make([]string, 0, len(keys))
	for k := range keys {
		orderedKeys = append(orderedKeys, k)
	}
	sort.Strings(orderedKeys)

	for _, key := range orderedKeys {
		present := make(map[string]types.ComparisonTuple)
		for name, m := range sources {
			if tuple, ok := m[key]; ok {
				present[name] = tuple
			}
		}
		if len(present) == expected && tuplesEqual(present) {
			continue
		}
		drift[key] = present
	}

	counts := map[string]int{
		types.SourceBcsStorage: len(fromStorage),
		types.SourceApiServer:  len(fromApi),
		types.SourceLocalDB:    len(fromLocal),
	}

	status := types.CheckStatusSuccess
	if len(drift) > 0 {
		status = types.CheckStatusWarning
	}

	return types.AuditResult{
		ClusterId:    req.ClusterId,
		ResourceKind: req.ResourceKind,
		Counts:       counts,
		Drift:        drift,
		Status:       status,
	}
}

func tuplesEqual(present map[string]types.ComparisonTuple) bool {
	var first *types.ComparisonTuple
	for _, t := range present {
		if first == nil {
			cp := t
			first = &cp
			continue
		}
		// resourceVersion 跨来源天然漂移，不参与相等性判断
		a, b := *first, t
		a.ResourceVersion, b.ResourceVersion = "", ""
		if a != b {
			return false
		}
	}
	return true
}

// skipInstance 系统命名空间、系统服务名和白名单外的命名空间不参与审计
func skipInstance(req types.AuditRequest, name, namespace string) bool {
	if ignoreNamespaces[namespace] || ignoreNames[name] {
		return true
	}
	if len(req.Namespaces) > 0 && namespace != "" && !containsStr(req.Namespaces, namespace) {
		return true
	}
	return false
}

// joinKey 工作负载按 (类型, 名称, 命名空间) 对齐，
// 同名同空间但类型不同的负载是两个独立实例
func joinKey(kind string, tuple types.ComparisonTuple) string {
	switch kind {
	case types.ResourceKindNode:
		return tuple.Name
	case types.ResourceKindWorkload:
		return tuple.WorkloadType + "/" + tuple.Name + "/" + tuple.Namespace
	default:
		return tuple.Name + "/" + tuple.Namespace
	}
}

func (s *consistencyCheckService) fetchFromStorage(req types.AuditRequest) (map[string]types.ComparisonTuple, error) {
	resourceType := strings.ToLower(req.ResourceKind)
	resources, err := s.storage.ListResources(s.ctx.Ctx, req.ClusterId, resourceType, storageFieldProjection[req.ResourceKind])
	if err != nil {
		return nil, err
	}

	out := make(map[string]types.ComparisonTuple, len(resources))
	for _, r := range resources {
		if skipInstance(req, r.ResourceName, r.Namespace) {
			continue
		}
		tuple := storageTuple(req.ResourceKind, r)
		out[joinKey(req.ResourceKind, tuple)] = tuple
	}
	return out, nil
}

func storageTuple(kind string, r bcsstorage.Resource) types.ComparisonTuple {
	tuple := types.ComparisonTuple{
		Name:      r.ResourceName,
		Namespace: r.Namespace,
	}
	meta, _ := r.Data["metadata"].(map[string]interface{})
	if meta != nil {
		tuple.ResourceVersion, _ = meta["resourceVersion"].(string)
	}

	switch kind {
	case types.ResourceKindPod, types.ResourceKindNode:
		if status, ok := r.Data["status"].(map[string]interface{}); ok {
			tuple.Status, _ = status["phase"].(string)
		}
	case types.ResourceKindService:
		if spec, ok := r.Data["spec"].(map[string]interface{}); ok {
			tuple.ServiceType, _ = spec["type"].(string)
			tuple.ClusterIP, _ = spec["clusterIP"].(string)
			if ips, iok := spec["externalIPs"].([]interface{}); iok && len(ips) > 0 {
				tuple.ExternalIP, _ = ips[0].(string)
			}
		}
	case types.ResourceKindEndpoints:
		tuple.Subsets = tools.JsonMarshalToString(r.Data["subsets"])
	case types.ResourceKindWorkload:
		tuple.WorkloadType, _ = r.Data["kind"].(string)
	}
	return tuple
}

func (s *consistencyCheckService) fetchFromApi(req types.AuditRequest, cluster models.ClusterRecord) (map[string]types.ComparisonTuple, error) {
	client, err := s.newClusterClient(cluster)
	if err != nil {
		return nil, err
	}

	out := make(map[string]types.ComparisonTuple)
	add := func(tuple types.ComparisonTuple) {
		if skipInstance(req, tuple.Name, tuple.Namespace) {
			return
		}
		out[joinKey(req.ResourceKind, tuple)] = tuple
	}

	switch req.ResourceKind {
	case types.ResourceKindPod:
		pods, lerr := client.ListPods(s.ctx.Ctx, "")
		if lerr != nil {
			return nil, lerr
		}
		for _, p := range pods {
			add(types.ComparisonTuple{
				Name:            p.Name,
				Namespace:       p.Namespace,
				ResourceVersion: p.ResourceVersion,
				Status:          string(p.Status.Phase),
			})
		}
	case types.ResourceKindService:
		svcs, lerr := client.ListServices(s.ctx.Ctx, "")
		if lerr != nil {
			return nil, lerr
		}
		for _, svc := range svcs {
			externalIp := ""
			if len(svc.Spec.ExternalIPs) > 0 {
				externalIp = svc.Spec.ExternalIPs[0]
			}
			add(types.ComparisonTuple{
				Name:        svc.Name,
				Namespace:   svc.Namespace,
				ServiceType: string(svc.Spec.Type),
				ClusterIP:   svc.Spec.ClusterIP,
				ExternalIP:  externalIp,
			})
		}
	case types.ResourceKindNode:
		nodes, lerr := client.ListNodes(s.ctx.Ctx)
		if lerr != nil {
			return nil, lerr
		}
		for _, n := range nodes {
			add(types.ComparisonTuple{
				Name:            n.Name,
				ResourceVersion: n.ResourceVersion,
				Status:          string(n.Status.Phase),
			})
		}
	case types.ResourceKindEndpoints:
		eps, lerr := client.ListEndpoints(s.ctx.Ctx, "")
		if lerr != nil {
			return nil, lerr
		}
		for _, ep := range eps {
			add(types.ComparisonTuple{
				Name:      ep.Name,
				Namespace: ep.Namespace,
				Subsets:   tools.JsonMarshalToString(ep.Subsets),
			})
		}
	case types.ResourceKindWorkload:
		deployments, lerr := client.ListDeployments(s.ctx.Ctx, "")
		if lerr != nil {
			return nil, lerr
		}
		for _, d := range deployments {
			add(types.ComparisonTuple{
				Name:            d.Name,
				Namespace:       d.Namespace,
				ResourceVersion: d.ResourceVersion,
				WorkloadType:    "Deployment",
			})
		}
		daemonSets, lerr := client.ListDaemonSets(s.ctx.Ctx, "")
		if lerr != nil {
			return nil, lerr
		}
		for _, d := range daemonSets {
			add(types.ComparisonTuple{
				Name:            d.Name,
				Namespace:       d.Namespace,
				ResourceVersion: d.ResourceVersion,
				WorkloadType:    "DaemonSet",
			})
		}
		statefulSets, lerr := client.ListStatefulSets(s.ctx.Ctx, "")
		if lerr != nil {
			return nil, lerr
		}
		for _, st := range statefulSets {
			add(types.ComparisonTuple{
				Name:            st.Name,
				Namespace:       st.Namespace,
				ResourceVersion: st.ResourceVersion,
				WorkloadType:    "StatefulSet",
			})
		}
		jobs, lerr := client.ListJobs(s.ctx.Ctx, "")
		if lerr != nil {
			return nil, lerr
		}
		for _, j := range jobs {
			add(types.ComparisonTuple{
				Name:            j.Name,
				Namespace:       j.Namespace,
				ResourceVersion: j.ResourceVersion,
				WorkloadType:    "Job",
			})
		}
		cronJobs, lerr := client.ListCronJobs(s.ctx.Ctx, "")
		if lerr != nil {
			return nil, lerr
		}
		for _, cj := range cronJobs {
			add(types.ComparisonTuple{
				Name:            cj.Name,
				Namespace:       cj.Namespace,
				ResourceVersion: cj.ResourceVersion,
				WorkloadType:    "CronJob",
			})
		}
	default:
		return nil, errs.NewValidation("不支持的审计资源类别: %s", req.ResourceKind)
	}

	return out, nil
}

func (s *consistencyCheckService) fetchFromLocal(req types.AuditRequest) (map[string]types.ComparisonTuple, error) {
	rows, err := s.ctx.DB.Cluster().ListResourceMirrors(req.ClusterId, req.ResourceKind)
	if err != nil {
		return nil, err
	}

	out := make(map[string]types.ComparisonTuple, len(rows))
	for _, r := range rows {
		if skipInstance(req, r.Name, r.Namespace) {
			continue
		}
		tuple := types.ComparisonTuple{
			Name:            r.Name,
			Namespace:       r.Namespace,
			ResourceVersion: r.ResourceVersion,
			Status:          r.Status,
			ServiceType:     r.ServiceType,
			ClusterIP:       r.ClusterIP,
			ExternalIP:      r.ExternalIP,
			WorkloadType:    r.WorkloadType,
			Subsets:         r.Subsets,
		}
		out[joinKey(req.ResourceKind, tuple)] = tuple
	}
	return out, nil
}
