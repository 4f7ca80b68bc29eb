package modules

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/jcs/sdorfehs-bar/pkg/bar"
	"github.com/jcs/sdorfehs-bar/pkg/markup"
)

// KubeClient abstracts the cluster API calls the module needs.
type KubeClient interface {
	ListNodes(ctx context.Context) ([]corev1.Node, error)
	ListPods(ctx context.Context, namespace string) ([]corev1.Pod, error)
}

// KubernetesConfig configures the kubernetes module.
type KubernetesConfig struct {
	// Kubeconfig is an explicit kubeconfig path. Empty applies the
	// default loading rules (KUBECONFIG, ~/.kube/config).
	Kubeconfig string

	// Context selects a kubeconfig context. Empty uses the current one.
	Context string

	// Namespace restricts the pod counts. Empty counts all namespaces.
	Namespace string

	// Client overrides the cluster client; nil connects lazily from the
	// kubeconfig on first render.
	Client KubeClient
}

// Kubernetes shows ready nodes and running pods for one cluster context.
type Kubernetes struct {
	kubeconfig string
	context    string
	namespace  string
	client     KubeClient
}

func NewKubernetes(cfg KubernetesConfig) *Kubernetes {
	return &Kubernetes{
		kubeconfig: cfg.Kubeconfig,
		context:    cfg.Context,
		namespace:  cfg.Namespace,
		client:     cfg.Client,
	}
}

func (k *Kubernetes) Name() string { return "kubernetes" }

func (k *Kubernetes) Render(ctx context.Context, v bar.View) (string, error) {
	if k.client == nil {
		// Connect on first use so a missing kubeconfig is a render error
		// (retried on the failing cadence), not a startup failure.
		client, err := connectKube(k.kubeconfig, k.context)
		if err != nil {
			return "", fmt.Errorf("kubernetes: %w", err)
		}
		k.client = client
	}

	nodes, err := k.client.ListNodes(ctx)
	if err != nil {
		return "", fmt.Errorf("kubernetes: list nodes: %w", err)
	}
	ready := 0
	for i := range nodes {
		if nodeReady(&nodes[i]) {
			ready++
		}
	}

	pods, err := k.client.ListPods(ctx, k.namespace)
	if err != nil {
		return "", fmt.Errorf("kubernetes: list pods: %w", err)
	}
	running := 0
	for i := range pods {
		if pods[i].Status.Phase == corev1.PodRunning {
			running++
		}
	}

	p := v.Palette
	color := p.Good
	if ready < len(nodes) {
		color = p.Warn
	}
	return markup.Fg(color, "k8s") + fmt.Sprintf(" %d/%d %dp", ready, len(nodes), running), nil
}

// nodeReady reports whether the node's Ready condition is true.
func nodeReady(node *corev1.Node) bool {
	for _, cond := range node.Status.Conditions {
		if cond.Type == corev1.NodeReady {
			return cond.Status == corev1.ConditionTrue
		}
	}
	return false
}

// connectKube builds a clientset from the kubeconfig, honoring the default
// loading rules when no explicit path is given.
func connectKube(kubeconfig, contextName string) (KubeClient, error) {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfig != "" {
		rules.ExplicitPath = kubeconfig
	}
	overrides := &clientcmd.ConfigOverrides{}
	if contextName != "" {
		overrides.CurrentContext = contextName
	}
	cfg, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("client config: %w", err)
	}
	cs, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("clientset: %w", err)
	}
	return &kubeClientset{cs: cs}, nil
}

// kubeClientset adapts a kubernetes.Clientset to KubeClient.
type kubeClientset struct {
	cs *kubernetes.Clientset
}

func (r *kubeClientset) ListNodes(ctx context.Context) ([]corev1.Node, error) {
	list, err := r.cs.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

func (r *kubeClientset) ListPods(ctx context.Context, namespace string) ([]corev1.Pod, error) {
	list, err := r.cs.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}
