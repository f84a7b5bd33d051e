package interceptor

import (
	"github.com/haukened/navguard/internal/guard/common/urlutil"
	"github.com/haukened/navguard/internal/guard/domain"
)

// choicesFor lists the user actions a notice offers. Proceed-anyway is only
// offered where Proceed accepts it: blocked navigations.
func choicesFor(kind domain.NoticeKind, ik domain.InterceptKind) []domain.Choice {
	switch kind {
	case domain.NoticeBlockingPage:
		if ik == domain.KindNavigation {
			return []domain.Choice{domain.ChoiceGoBack, domain.ChoiceTrustSite, domain.ChoiceProceedAnyway}
		}
		return []domain.Choice{domain.ChoiceGoBack, domain.ChoiceTrustSite}
	case domain.NoticeWarningBanner:
		return []domain.Choice{domain.ChoiceDismiss, domain.ChoiceGoBack}
	case domain.NoticeLinkAnnotation:
		return []domain.Choice{domain.ChoiceProceed, domain.ChoiceDismiss}
	case domain.NoticeSubmissionPrompt:
		return []domain.Choice{domain.ChoiceProceed, domain.ChoiceGoBack}
	default:
		return nil
	}
}

func newNotice(ic domain.Intercept, kind domain.NoticeKind) *domain.Notice {
	n := &domain.Notice{
		InterceptID: ic.ID,
		TabID:       ic.TabID,
		Kind:        kind,
		URL:         ic.URL,
		Choices:     choicesFor(kind, ic.Kind),
	}
	if ic.Decision != nil {
		d := *ic.Decision
		n.Decision = d
		n.Site = urlutil.RegistrableDomain(d.Domain)
	}
	return n
}
