// Package gate decides which quota-limited actions the current usage record allows.
//
// Everything here is a pure function of the latest [models.Usage]; nothing is cached. A nil
// record (not loaded yet, or no active billing cycle) gates nothing.
package gate

import (
	"fmt"

	"github.com/desertthunder/ytpod/internal/models"
)

// Tier lookup keys with special handling.
const (
	TierFree         = "free"
	TierBasicMonthly = "basic_monthly"
	TierBasicYearly  = "basic_yearly"
)

// Upload ceilings per billing cycle.
const (
	FreeUploadLimit  = 15
	BasicUploadLimit = 50
)

// UsageLimitReached reports whether the cycle's quota is used up. Without a limit nothing is reached.
func UsageLimitReached(u *models.Usage) bool {
	if u == nil {
		return false
	}
	return u.Limit > 0 && u.Usage >= u.Limit
}

// UploadCeiling returns the upload cap of a tier and false for tiers without one.
func UploadCeiling(tier string) (int, bool) {
	switch tier {
	case TierFree:
		return FreeUploadLimit, true
	case TierBasicMonthly, TierBasicYearly:
		return BasicUploadLimit, true
	default:
		return 0, false
	}
}

// UploadLimitReached reports whether the tier's upload cap is used up.
func UploadLimitReached(u *models.Usage) bool {
	if u == nil {
		return false
	}
	ceiling, ok := UploadCeiling(u.TierKey())
	return ok && u.Uploads >= ceiling
}

// FeatureDisabledByTier reports whether tier is below the plans that include jobs, webhooks and API keys.
func FeatureDisabledByTier(tier string) bool {
	switch tier {
	case TierFree, TierBasicMonthly, TierBasicYearly:
		return true
	default:
		return false
	}
}

// Action is a gated user action.
type Action int

const (
	CreateJobs Action = iota
	AddURLItems
	UploadAudio
	CreateWebhook
	GenerateAPIKey
)

func (a Action) String() string {
	switch a {
	case CreateJobs:
		return "create jobs"
	case AddURLItems:
		return "add episodes"
	case UploadAudio:
		return "upload audio"
	case CreateWebhook:
		return "create a webhook"
	case GenerateAPIKey:
		return "generate an API key"
	default:
		return ""
	}
}

// Gate is the evaluated state of one usage record.
type Gate struct {
	Tier               string
	UsageReached       bool
	UploadsReached     bool
	TierDisabled       bool
	Usage, Limit       int
	Uploads, UploadCap int
}

// Evaluate computes the gate for u.
func Evaluate(u *models.Usage) Gate {
	if u == nil {
		return Gate{}
	}
	g := Gate{
		Tier:           u.TierKey(),
		UsageReached:   UsageLimitReached(u),
		UploadsReached: UploadLimitReached(u),
		Usage:          u.Usage,
		Limit:          u.Limit,
		Uploads:        u.Uploads,
	}
	g.UploadCap, _ = UploadCeiling(g.Tier)
	g.TierDisabled = g.Tier != "" && FeatureDisabledByTier(g.Tier)
	return g
}

// Decoration tells a control whether to disable itself and what to show.
type Decoration struct {
	Disabled bool
	Reason   string
	Upgrade  string
}

// PortalHint is the command that opens the billing portal, where paid subscriptions change plans.
const PortalHint = "ytpod billing portal"

// UpgradeHint is the command that opens the subscription checkout.
func UpgradeHint(plan models.Plan) string {
	return fmt.Sprintf("ytpod billing checkout %s", plan)
}

// Paid reports whether the record belongs to a paid subscription.
func (g Gate) Paid() bool {
	return g.Tier != "" && g.Tier != TierFree
}

// upgrade points free accounts at a checkout for plan. A paid subscription can't start a
// second checkout, so it is sent to the portal instead.
func (g Gate) upgrade(plan models.Plan) string {
	if g.Paid() {
		return PortalHint
	}
	return UpgradeHint(plan)
}

// Decorate returns the decoration of an action under this gate.
func (g Gate) Decorate(a Action) Decoration {
	var reason string
	plan := models.PlanBasicMonthly

	switch a {
	case CreateJobs:
		switch {
		case g.TierDisabled:
			reason = "Jobs are available on the Power User plan and above."
			plan = models.PlanPowerUserMonthly
		case g.UsageReached:
			reason = "You've reached your monthly usage limit."
		}
	case AddURLItems:
		if g.UsageReached {
			reason = "You've reached your monthly usage limit."
		}
	case UploadAudio:
		if g.UploadsReached {
			reason = fmt.Sprintf("You've reached your limit of %d uploads this month.", g.UploadCap)
		}
	case CreateWebhook, GenerateAPIKey:
		if g.TierDisabled {
			reason = fmt.Sprintf("Upgrade to the Power User plan to %s.", a)
			plan = models.PlanPowerUserMonthly
		}
	}

	if reason == "" {
		return Decoration{}
	}
	return Decoration{Disabled: true, Reason: reason, Upgrade: g.upgrade(plan)}
}

// Allowed reports whether a is enabled.
func (g Gate) Allowed(a Action) bool {
	return !g.Decorate(a).Disabled
}
