package main

import (
	"log/slog"
	"os"
	"sort"

	networkingv1 "k8s.io/api/networking/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	kyaml "sigs.k8s.io/yaml"
)

// ingressOptions configures the Kubernetes Ingress manifest generated to
// front the redirect engine.
type ingressOptions struct {
	outputPath       string
	namespace        string
	serviceName      string
	servicePort      int32
	ingressName      string
	ingressClassName string
}

// buildIngress emits one Ingress rule per configured virtualhost, each
// forwarding every path ("/" and "/redir" included) to the engine's
// Service: the engine, not the Ingress controller, owns all routing
// decisions.
func buildIngress(tables *Tables, opts ingressOptions) *networkingv1.Ingress {
	ingressClass := opts.ingressClassName
	pt := networkingv1.PathTypePrefix

	ing := &networkingv1.Ingress{
		TypeMeta: metav1.TypeMeta{
			Kind:       "Ingress",
			APIVersion: networkingv1.SchemeGroupVersion.String(),
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      opts.ingressName,
			Namespace: opts.namespace,
		},
		Spec: networkingv1.IngressSpec{
			IngressClassName: &ingressClass,
		},
	}

	var hosts []string
	for host := range tables.Hosts {
		if host == defaultHost {
			continue
		}
		hosts = append(hosts, host)
	}
	sort.Strings(hosts)

	backend := networkingv1.IngressBackend{
		Service: &networkingv1.IngressServiceBackend{
			Name: opts.serviceName,
			Port: networkingv1.ServiceBackendPort{Number: opts.servicePort},
		},
	}

	for _, host := range hosts {
		ing.Spec.Rules = append(ing.Spec.Rules, networkingv1.IngressRule{
			Host: host,
			IngressRuleValue: networkingv1.IngressRuleValue{
				HTTP: &networkingv1.HTTPIngressRuleValue{
					Paths: []networkingv1.HTTPIngressPath{
						{Path: "/", PathType: &pt, Backend: backend},
					},
				},
			},
		})
	}

	return ing
}

func generateIngress(logger *slog.Logger, defsDir string, opts ingressOptions) error {
	loader := NewLoader(defsDir, logger)
	tables, err := loader.Load(true)
	if err != nil {
		return err
	}

	ing := buildIngress(tables, opts)
	out, err := kyaml.Marshal(ing)
	if err != nil {
		return err
	}

	logger.Info("writing ingress manifest", "path", opts.outputPath, "host_count", len(ing.Spec.Rules))
	return os.WriteFile(opts.outputPath, out, 0o644)
}
