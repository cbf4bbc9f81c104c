package main

import (
	"context"
	"time"

	"termlaunch/internal/kube"
)

const kubeCallTimeout = 15 * time.Second

var newKubeClientFn = kube.NewFromKubeconfig

// ListKubeNamespaces returns the namespaces of the current kube context.
func (a *App) ListKubeNamespaces() ([]string, error) {
	client, err := a.requireKube()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(a.callContext(), kubeCallTimeout)
	defer cancel()
	return client.Namespaces(ctx)
}

// ListKubePods returns the pods of namespace for the kubectl-exec option.
func (a *App) ListKubePods(namespace string) ([]kube.Pod, error) {
	client, err := a.requireKube()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(a.callContext(), kubeCallTimeout)
	defer cancel()
	return client.Pods(ctx, namespace)
}
