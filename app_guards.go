package main

import (
	"errors"

	"termlaunch/internal/history"
	"termlaunch/internal/kube"
)

func (a *App) requireHistory() (*history.Store, error) {
	if a.history == nil {
		return nil, errors.New("launch history is unavailable")
	}
	return a.history, nil
}

// requireKube returns the cached Kubernetes client, building it on first use
// from the configured kubeconfig. A changed kubeconfig path rebuilds it.
func (a *App) requireKube() (*kube.Client, error) {
	path := a.getConfigSnapshot().Kubeconfig

	a.kubeMu.Lock()
	defer a.kubeMu.Unlock()
	if a.kube != nil && a.kubePath == path {
		return a.kube, nil
	}
	client, err := newKubeClientFn(path)
	if err != nil {
		return nil, err
	}
	a.kube = client
	a.kubePath = path
	return client, nil
}
