// exec.go runs readiness commands inside pods for the exec-command probe.
package kube

import (
	"bytes"
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/tools/remotecommand"
)

// Exec runs the command inside the target pod/container and returns captured
// stdout and stderr. A non-nil error covers both transport failures and
// non-zero exit codes.
func (c *Client) Exec(ctx context.Context, namespace, pod, container string, command []string) (stdout, stderr string, err error) {
	if len(command) == 0 {
		return "", "", fmt.Errorf("command must not be empty")
	}
	if namespace == "" {
		namespace = c.Namespace
	}
	if namespace == "" {
		return "", "", fmt.Errorf("namespace must be specified")
	}
	if pod == "" {
		return "", "", fmt.Errorf("pod must be specified")
	}

	req := c.Clientset.CoreV1().RESTClient().Post().
		Resource("pods").
		Namespace(namespace).
		Name(pod).
		SubResource("exec")

	execOpts := &corev1.PodExecOptions{
		Command:   command,
		Container: container,
		Stdout:    true,
		Stderr:    true,
		TTY:       false,
	}
	req.VersionedParams(execOpts, scheme.ParameterCodec)

	executor, err := remotecommand.NewSPDYExecutor(c.RESTConfig, "POST", req.URL())
	if err != nil {
		return "", "", fmt.Errorf("create executor: %w", err)
	}

	var outBuf, errBuf bytes.Buffer
	streamErr := executor.StreamWithContext(ctx, remotecommand.StreamOptions{
		Stdout: &outBuf,
		Stderr: &errBuf,
	})
	if streamErr != nil {
		return outBuf.String(), errBuf.String(), fmt.Errorf("exec command: %w", streamErr)
	}
	return outBuf.String(), errBuf.String(), nil
}
