package kubernetesx

import (
	"context"
	"fmt"

	"monitorHub/internal/errs"

	appsv1 "k8s.io/api/apps/v1"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
)

// DataIDResourceGVR 数据链路 CRD 的资源定位
var DataIDResourceGVR = schema.GroupVersionResource{
	Group:    "monitoring.bk.tencent.com",
	Version:  "v1beta1",
	Resource: "dataids",
}

// Client 集群 API 客户端，审计的实时来源和校验的 CRD 读取都走这里
type Client struct {
	clientset kubernetes.Interface
	dynamic   dynamic.Interface
}

// NewClusterClient 按集群接入信息构建客户端
func NewClusterClient(domainName string, port int, token string) (*Client, error) {
	cfg := &rest.Config{
		Host:        fmt.Sprintf("https://%s:%d", domainName, port),
		BearerToken: token,
		TLSClientConfig: rest.TLSClientConfig{
			Insecure: true,
		},
	}

	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("创建集群客户端失败: %w", err)
	}
	dyn, err := dynamic.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("创建动态客户端失败: %w", err)
	}

	return &Client{
		clientset: clientset,
		dynamic:   dyn,
	}, nil
}

// NewClientFromInterfaces 测试和内部复用入口
func NewClientFromInterfaces(clientset kubernetes.Interface, dyn dynamic.Interface) *Client {
	return &Client{
		clientset: clientset,
		dynamic:   dyn,
	}
}

func (c *Client) ListPods(ctx context.Context, namespace string) ([]corev1.Pod, error) {
	list, err := c.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, errs.NewExternal("kubernetes", err)
	}
	return list.Items, nil
}

func (c *Client) ListNodes(ctx context.Context) ([]corev1.Node, error) {
	list, err := c.clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, errs.NewExternal("kubernetes", err)
	}
	return list.Items, nil
}

func (c *Client) ListServices(ctx context.Context, namespace string) ([]corev1.Service, error) {
	list, err := c.clientset.CoreV1().Services(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, errs.NewExternal("kubernetes", err)
	}
	return list.Items, nil
}

func (c *Client) ListEndpoints(ctx context.Context, namespace string) ([]corev1.Endpoints, error) {
	list, err := c.clientset.CoreV1().Endpoints(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, errs.NewExternal("kubernetes", err)
	}
	return list.Items, nil
}

func (c *Client) ListConfigMaps(ctx context.Context, namespace string) ([]corev1.ConfigMap, error) {
	list, err := c.clientset.CoreV1().ConfigMaps(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, errs.NewExternal("kubernetes", err)
	}
	return list.Items, nil
}

func (c *Client) ListDeployments(ctx context.Context, namespace string) ([]appsv1.Deployment, error) {
	list, err := c.clientset.AppsV1().Deployments(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, errs.NewExternal("kubernetes", err)
	}
	return list.Items, nil
}

func (c *Client) ListDaemonSets(ctx context.Context, namespace string) ([]appsv1.DaemonSet, error) {
	list, err := c.clientset.AppsV1().DaemonSets(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, errs.NewExternal("kubernetes", err)
	}
	return list.Items, nil
}

func (c *Client) ListStatefulSets(ctx context.Context, namespace string) ([]appsv1.StatefulSet, error) {
	list, err := c.clientset.AppsV1().StatefulSets(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, errs.NewExternal("kubernetes", err)
	}
	return list.Items, nil
}

func (c *Client) ListJobs(ctx context.Context, namespace string) ([]batchv1.Job, error) {
	list, err := c.clientset.BatchV1().Jobs(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, errs.NewExternal("kubernetes", err)
	}
	return list.Items, nil
}

func (c *Client) ListCronJobs(ctx context.Context, namespace string) ([]batchv1.CronJob, error) {
	list, err := c.clientset.BatchV1().CronJobs(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, errs.NewExternal("kubernetes", err)
	}
	return list.Items, nil
}

// DynamicGet 按 GVR 读取任意资源
func (c *Client) DynamicGet(ctx context.Context, gvr schema.GroupVersionResource, namespace, name string) (*unstructured.Unstructured, error) {
	obj, err := c.dynamic.Resource(gvr).Namespace(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, errs.NewExternal("kubernetes", err)
	}
	return obj, nil
}

// DynamicList 按 GVR 列举任意资源
func (c *Client) DynamicList(ctx context.Context, gvr schema.GroupVersionResource, namespace string) (*unstructured.UnstructuredList, error) {
	list, err := c.dynamic.Resource(gvr).Namespace(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, errs.NewExternal("kubernetes", err)
	}
	return list, nil
}

// GetDataIDResource 读取集群级 DataID CRD 实例
func (c *Client) GetDataIDResource(ctx context.Context, name string) (*unstructured.Unstructured, error) {
	obj, err := c.dynamic.Resource(DataIDResourceGVR).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, errs.NewExternal("kubernetes", err)
	}
	return obj, nil
}

func (c *Client) ListDataIDResources(ctx context.Context) (*unstructured.UnstructuredList, error) {
	list, err := c.dynamic.Resource(DataIDResourceGVR).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, errs.NewExternal("kubernetes", err)
	}
	return list, nil
}

// HasDataIDResourceCRD 探测集群是否安装了 DataID CRD
func (c *Client) HasDataIDResourceCRD(ctx context.Context) (bool, error) {
	groups, err := c.clientset.Discovery().ServerGroups()
	if err != nil {
		return false, errs.NewExternal("kubernetes", err)
	}
	for _, g := range groups.Groups {
		if g.Name == DataIDResourceGVR.Group {
			return true, nil
		}
	}
	return false, nil
}
