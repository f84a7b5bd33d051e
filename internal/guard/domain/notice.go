package domain

// NoticeKind tells the presentation layer how to surface a decision.
type NoticeKind string

const (
	NoticeBlockingPage     NoticeKind = "blocking_page"
	NoticeWarningBanner    NoticeKind = "warning_banner"
	NoticeLinkAnnotation   NoticeKind = "link_annotation"
	NoticeSubmissionPrompt NoticeKind = "submission_prompt"
)

// Choice is a user action offered by a notice.
type Choice string

const (
	ChoiceGoBack        Choice = "go_back"
	ChoiceTrustSite     Choice = "trust_site"
	ChoiceProceedAnyway Choice = "proceed_anyway"
	ChoiceProceed       Choice = "proceed"
	ChoiceDismiss       Choice = "dismiss"
)

// Notice is what the coordinator hands to the presentation layer.
type Notice struct {
	InterceptID string     `json:"interceptId"`
	TabID       int        `json:"tabId"`
	Kind        NoticeKind `json:"kind"`
	URL         string     `json:"url"`
	Site        string     `json:"site"`
	Decision    Decision   `json:"decision"`
	Choices     []Choice   `json:"choices"`
}
