package gate

import (
	"strings"
	"testing"

	"github.com/desertthunder/ytpod/internal/models"
)

func usage(tier string, used, limit, uploads int) *models.Usage {
	u := &models.Usage{Usage: used, Limit: limit, Uploads: uploads}
	if tier != "" {
		u.Expand.Tier = &models.SubscriptionTier{LookupKey: tier}
	}
	return u
}

func TestUsageLimitReached(t *testing.T) {
	tc := []struct {
		name        string
		used, limit int
		want        bool
	}{
		{"At Limit", 500, 500, true},
		{"Over Limit", 501, 500, true},
		{"Below Limit", 499, 500, false},
		{"Zero Limit", 1000, 0, false},
	}
	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := UsageLimitReached(usage(TierFree, tt.used, tt.limit, 0)); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}

	t.Run("Nil Record", func(t *testing.T) {
		if UsageLimitReached(nil) {
			t.Error("expected nil usage to gate nothing")
		}
	})
}

func TestUploadLimitReached(t *testing.T) {
	tc := []struct {
		tier    string
		uploads int
		want    bool
	}{
		{"free", 15, true},
		{"free", 14, false},
		{"basic_monthly", 49, false},
		{"basic_monthly", 50, true},
		{"basic_yearly", 50, true},
		{"power_user_monthly", 1000, false},
		{"professional_yearly", 1000, false},
		{"", 1000, false},
	}
	for _, tt := range tc {
		if got := UploadLimitReached(usage(tt.tier, 0, 0, tt.uploads)); got != tt.want {
			t.Errorf("tier %q uploads %d: expected %v, got %v", tt.tier, tt.uploads, tt.want, got)
		}
	}
	if UploadLimitReached(nil) {
		t.Error("expected nil usage to gate nothing")
	}
}

func TestFeatureDisabledByTier(t *testing.T) {
	for tier, want := range map[string]bool{
		"free":                 true,
		"basic_monthly":        true,
		"basic_yearly":         true,
		"power_user_monthly":   false,
		"professional_monthly": false,
	} {
		if got := FeatureDisabledByTier(tier); got != want {
			t.Errorf("%s: expected %v, got %v", tier, want, got)
		}
	}
}

func TestDecorate(t *testing.T) {
	t.Run("Nil Usage Allows Everything", func(t *testing.T) {
		g := Evaluate(nil)
		for _, a := range []Action{CreateJobs, AddURLItems, UploadAudio, CreateWebhook, GenerateAPIKey} {
			if !g.Allowed(a) {
				t.Errorf("expected %s allowed", a)
			}
		}
	})

	t.Run("Usage Limit Disables URL Actions", func(t *testing.T) {
		g := Evaluate(usage("power_user_monthly", 500, 500, 0))
		d := g.Decorate(AddURLItems)
		if !d.Disabled || d.Reason == "" {
			t.Errorf("expected disabled with reason, got %+v", d)
		}
		if d.Upgrade != PortalHint {
			t.Errorf("expected portal hint, got %q", d.Upgrade)
		}
		if !g.Allowed(UploadAudio) || !g.Allowed(CreateWebhook) {
			t.Error("expected uploads and webhooks unaffected by usage")
		}
	})

	t.Run("Upload Ceiling", func(t *testing.T) {
		d := Evaluate(usage("free", 0, 100, 15)).Decorate(UploadAudio)
		if !d.Disabled || !strings.Contains(d.Reason, "15 uploads") {
			t.Errorf("unexpected decoration %+v", d)
		}
		if d.Upgrade != UpgradeHint(models.PlanBasicMonthly) {
			t.Errorf("expected basic plan hint, got %q", d.Upgrade)
		}
	})

	t.Run("Tier Gated Features", func(t *testing.T) {
		g := Evaluate(usage("basic_yearly", 0, 100, 0))
		for _, a := range []Action{CreateJobs, CreateWebhook, GenerateAPIKey} {
			d := g.Decorate(a)
			if !d.Disabled || d.Upgrade != PortalHint {
				t.Errorf("%s: unexpected decoration %+v", a, d)
			}
		}
		if !g.Allowed(AddURLItems) {
			t.Error("expected URL items allowed under quota")
		}
	})

	t.Run("Upgrade Hints", func(t *testing.T) {
		tests := []struct {
			name   string
			usage  *models.Usage
			action Action
			want   string
		}{
			{"free jobs", usage("free", 0, 100, 0), CreateJobs, UpgradeHint(models.PlanPowerUserMonthly)},
			{"free webhook", usage("free", 0, 100, 0), CreateWebhook, UpgradeHint(models.PlanPowerUserMonthly)},
			{"free usage", usage("free", 100, 100, 0), AddURLItems, UpgradeHint(models.PlanBasicMonthly)},
			{"no tier usage", usage("", 100, 100, 0), CreateJobs, UpgradeHint(models.PlanBasicMonthly)},
			{"basic monthly jobs", usage("basic_monthly", 0, 100, 0), CreateJobs, PortalHint},
			{"basic monthly usage", usage("basic_monthly", 100, 100, 0), AddURLItems, PortalHint},
			{"basic monthly webhook", usage("basic_monthly", 0, 100, 0), CreateWebhook, PortalHint},
			{"basic yearly uploads", usage("basic_yearly", 0, 100, 50), UploadAudio, PortalHint},
			{"power user monthly usage", usage("power_user_monthly", 100, 100, 0), CreateJobs, PortalHint},
			{"power user yearly usage", usage("power_user_yearly", 100, 100, 0), AddURLItems, PortalHint},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				d := Evaluate(tt.usage).Decorate(tt.action)
				if !d.Disabled {
					t.Fatalf("expected %s disabled", tt.action)
				}
				if d.Upgrade != tt.want {
					t.Errorf("expected %q, got %q", tt.want, d.Upgrade)
				}
			})
		}
	})

	t.Run("Paid", func(t *testing.T) {
		for tier, want := range map[string]bool{"": false, "free": false, "basic_monthly": true, "power_user_yearly": true} {
			if got := Evaluate(usage(tier, 0, 0, 0)).Paid(); got != want {
				t.Errorf("%q: expected %v, got %v", tier, want, got)
			}
		}
	})

	t.Run("Evaluate Copies Counters", func(t *testing.T) {
		g := Evaluate(usage("basic_monthly", 10, 20, 3))
		if g.Tier != "basic_monthly" || g.Usage != 10 || g.Limit != 20 || g.Uploads != 3 || g.UploadCap != 50 {
			t.Errorf("unexpected gate %+v", g)
		}
	})
}
