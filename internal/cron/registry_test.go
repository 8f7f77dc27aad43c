package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type namedJob string

func (j namedJob) Name() string              { return string(j) }
func (j namedJob) Run(context.Context) error { return nil }

func TestRegistryKeepsRegistrationOrder(t *testing.T) {
	registry := NewRegistry(namedJob("reconcile"))
	registry.Register(namedJob("notification-cleanup"))
	registry.Register(namedJob("session-sweep"))

	require.Equal(t, []string{"reconcile", "notification-cleanup", "session-sweep"}, registry.Names())
}

func TestRegistryJobsReturnsCopy(t *testing.T) {
	registry := NewRegistry(namedJob("reconcile"))

	jobs := registry.Jobs()
	jobs[0] = namedJob("mutated")

	require.Equal(t, "reconcile", registry.Jobs()[0].Name())
}

func TestRegistryIgnoresNilJobs(t *testing.T) {
	var missing Job
	registry := NewRegistry(missing, namedJob("reconcile"))
	registry.Register(nil)

	require.Len(t, registry.Jobs(), 1)
}
