package models

// BannerKind is the closed set of banner severities. The transport layer maps
// kinds to presentation (color, ARIA role): error and warning render with
// role alert, info and success with role status.
type BannerKind string

const (
	BannerSuccess BannerKind = "success"
	BannerWarning BannerKind = "warning"
	BannerError   BannerKind = "error"
	BannerInfo    BannerKind = "info"
)

// Banner is the titled, described message shown for flow outcomes.
type Banner struct {
	Kind        BannerKind `json:"kind"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
}

func ErrorBanner(title, description string) *Banner {
	return &Banner{Kind: BannerError, Title: title, Description: description}
}

func WarningBanner(title, description string) *Banner {
	return &Banner{Kind: BannerWarning, Title: title, Description: description}
}

func SuccessBanner(title, description string) *Banner {
	return &Banner{Kind: BannerSuccess, Title: title, Description: description}
}

func InfoBanner(title, description string) *Banner {
	return &Banner{Kind: BannerInfo, Title: title, Description: description}
}
