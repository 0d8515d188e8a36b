package tools

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/zeromicro/go-zero/core/logc"
)

// NewCronjob 注册一个定时任务并启动调度器，阻塞直到进程退出
func NewCronjob(spec string, job func()) {
	c := cron.New()
	if _, err := c.AddFunc(spec, job); err != nil {
		logc.Errorf(context.Background(), "注册定时任务失败, spec: %s, err: %s", spec, err.Error())
		return
	}
	c.Start()
	select {}
}
