// Package kube lists namespaces and pods so the kubectl-exec launch option
// can offer valid targets.
package kube

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
)

const requestTimeout = 10 * time.Second

var userHomeDirFn = os.UserHomeDir

// Pod is the subset of pod state the launcher shows.
type Pod struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
	Phase     string `json:"phase"`
	Ready     bool   `json:"ready"`
}

// Client wraps a Kubernetes clientset.
type Client struct {
	clientset kubernetes.Interface
}

// New wraps an existing clientset.
func New(clientset kubernetes.Interface) *Client {
	return &Client{clientset: clientset}
}

// DefaultKubeconfig returns the first entry of $KUBECONFIG, else ~/.kube/config.
func DefaultKubeconfig() (string, error) {
	if env := os.Getenv("KUBECONFIG"); env != "" {
		for _, entry := range filepath.SplitList(env) {
			if strings.TrimSpace(entry) != "" {
				return entry, nil
			}
		}
	}
	home, err := userHomeDirFn()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".kube", "config"), nil
}

// NewFromKubeconfig builds a client from kubeconfig. An empty path uses
// DefaultKubeconfig.
func NewFromKubeconfig(kubeconfig string) (*Client, error) {
	if kubeconfig == "" {
		path, err := DefaultKubeconfig()
		if err != nil {
			return nil, err
		}
		kubeconfig = path
	}
	if _, err := os.Stat(kubeconfig); err != nil {
		return nil, fmt.Errorf("kubeconfig %s: %w", kubeconfig, err)
	}
	config, err := clientcmd.BuildConfigFromFlags("", kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("failed to build k8s config: %w", err)
	}
	config.Timeout = requestTimeout
	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create k8s clientset: %w", err)
	}
	return New(clientset), nil
}

// Namespaces returns all namespace names, sorted.
func (c *Client) Namespaces(ctx context.Context) ([]string, error) {
	list, err := c.clientset.CoreV1().Namespaces().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list namespaces: %w", err)
	}
	names := make([]string, 0, len(list.Items))
	for _, ns := range list.Items {
		names = append(names, ns.Name)
	}
	slices.Sort(names)
	return names, nil
}

// Pods returns the pods of namespace, sorted by name.
func (c *Client) Pods(ctx context.Context, namespace string) ([]Pod, error) {
	if strings.TrimSpace(namespace) == "" {
		return nil, errors.New("namespace required")
	}
	list, err := c.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list pods in %s: %w", namespace, err)
	}
	pods := make([]Pod, 0, len(list.Items))
	for _, p := range list.Items {
		pods = append(pods, Pod{
			Name:      p.Name,
			Namespace: p.Namespace,
			Phase:     string(p.Status.Phase),
			Ready:     podReady(p),
		})
	}
	slices.SortFunc(pods, func(a, b Pod) int { return strings.Compare(a.Name, b.Name) })
	return pods, nil
}

func podReady(p corev1.Pod) bool {
	for _, cond := range p.Status.Conditions {
		if cond.Type == corev1.PodReady {
			return cond.Status == corev1.ConditionTrue
		}
	}
	return false
}
