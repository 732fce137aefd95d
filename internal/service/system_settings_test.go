package service

import (
	"context"
	"testing"
)

func TestEnsureDefaultSwitches(t *testing.T) {
	repo := newStubRepo()
	svc := &SystemSettingsService{Repo: repo}
	ctx := context.Background()

	if err := svc.EnsureDefaultSwitches(ctx); err != nil {
		t.Fatalf("EnsureDefaultSwitches: %v", err)
	}
	if !svc.IsEnabled(ctx, FeatureReconciler, false) {
		t.Fatal("reconciler switch should default on")
	}
	if svc.IsEnabled(ctx, FeatureChainSubmit, false) {
		t.Fatal("chain_submit switch should default off")
	}

	// Seeding again must not clobber operator overrides.
	if err := svc.SetEnabled(ctx, FeatureReconciler, false, ""); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}
	if err := svc.EnsureDefaultSwitches(ctx); err != nil {
		t.Fatalf("EnsureDefaultSwitches again: %v", err)
	}
	if svc.IsEnabled(ctx, FeatureReconciler, true) {
		t.Fatal("operator override lost after re-seeding defaults")
	}
}

func TestIsEnabledFallbacks(t *testing.T) {
	svc := &SystemSettingsService{Repo: newStubRepo()}
	ctx := context.Background()
	if !svc.IsEnabled(ctx, "feature.unknown", true) {
		t.Fatal("missing setting should report the fallback")
	}
	if svc.IsEnabled(ctx, "feature.unknown", false) {
		t.Fatal("missing setting should report the fallback")
	}
}
