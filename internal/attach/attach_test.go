package attach

import (
	"context"
	"testing"

	"catalog/enricher/internal/config"
	"catalog/enricher/internal/domain"
	"catalog/enricher/internal/gateway/gatewaytest"

	"github.com/stretchr/testify/assert"
)

func ensuredBranch() []domain.EnsuredNode {
	return []domain.EnsuredNode{
		{CollectionID: 1, Title: "AUDI", Level: 0},
		{CollectionID: 2, Title: "AUDI Exteriér", Level: 1},
	}
}

func TestAttachCreatesMembershipForEveryNode(t *testing.T) {
	fake := gatewaytest.New()
	diags := &domain.Diagnostics{}

	attacher := NewAttacher(fake, config.AttachmentConfig{Enabled: true})
	attacher.Attach(context.Background(), 42, ensuredBranch(), diags)

	assert.Len(t, fake.Collects, 2)
	assert.True(t, diags.Empty())
}

func TestAttachIsIdempotent(t *testing.T) {
	fake := gatewaytest.New()
	diags := &domain.Diagnostics{}
	attacher := NewAttacher(fake, config.AttachmentConfig{Enabled: true})

	attacher.Attach(context.Background(), 42, ensuredBranch(), diags)
	attacher.Attach(context.Background(), 42, ensuredBranch(), diags)

	// Exactly one membership record per product/collection pair.
	assert.Len(t, fake.Collects, 2)
	// The second pass saw existing memberships and created nothing.
	assert.Equal(t, 2, fake.CallCount("CreateCollect"))
}

func TestAttachDryRunPerformsNoWrites(t *testing.T) {
	fake := gatewaytest.New()
	attacher := NewAttacher(fake, config.AttachmentConfig{Enabled: true, DryRun: true})

	attacher.Attach(context.Background(), 42, ensuredBranch(), &domain.Diagnostics{})

	assert.Empty(t, fake.Collects)
	assert.Zero(t, fake.CallCount("HasCollect"))
	assert.Zero(t, fake.CallCount("CreateCollect"))
}

func TestAttachKillSwitchDisablesEverything(t *testing.T) {
	fake := gatewaytest.New()
	attacher := NewAttacher(fake, config.AttachmentConfig{Enabled: false})

	attacher.Attach(context.Background(), 42, ensuredBranch(), &domain.Diagnostics{})

	assert.Empty(t, fake.Calls)
}
