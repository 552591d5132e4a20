package library

import "time"

type Copy struct {
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Author   string     `json:"author,omitempty"`
	ISBN     string     `json:"isbn,omitempty"`
	HolderID string     `json:"holder_id,omitempty"`
	IssuedAt *time.Time `json:"issued_at,omitempty"`
	DueAt    *time.Time `json:"due_at,omitempty"`
	Status   string     `json:"status"`
}

type RegisterRequest struct {
	Login       string `json:"login"`
	DisplayName string `json:"display_name,omitempty"`
	Secret      string `json:"secret"`
}

type RegisterResponse struct {
	HolderID string `json:"holder_id"`
}

type LoginRequest struct {
	Login  string `json:"login"`
	Secret string `json:"secret"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type LogoutRequest struct{}

type LogoutResponse struct{}

// CheckoutRequest lends a copy. HolderID may only be set by admins; it
// defaults to the caller. LoanPeriodSeconds of 0 uses the server default.
type CheckoutRequest struct {
	CopyID            string `json:"copy_id"`
	HolderID          string `json:"holder_id,omitempty"`
	LoanPeriodSeconds int64  `json:"loan_period_seconds,omitempty"`
}

type ReturnRequest struct {
	CopyID string `json:"copy_id"`
}

type CopyResponse struct {
	Copy *Copy `json:"copy"`
}

type GetCopyRequest struct {
	CopyID string `json:"copy_id"`
}

type GetCopyResponse struct {
	Copy     *Copy  `json:"copy"`
	CoverURL string `json:"cover_url,omitempty"`
}

type ListRequest struct {
	Page     int `json:"page,omitempty"`
	PageSize int `json:"page_size,omitempty"`
}

// SearchCopiesRequest matches title and author as case-insensitive
// substrings and isbn exactly. At least one of them must be set.
type SearchCopiesRequest struct {
	Title    string `json:"title,omitempty"`
	Author   string `json:"author,omitempty"`
	ISBN     string `json:"isbn,omitempty"`
	Page     int    `json:"page,omitempty"`
	PageSize int    `json:"page_size,omitempty"`
}

type ListCopiesResponse struct {
	Copies []*Copy `json:"copies"`
	Total  int     `json:"total"`
}

type RegisterCopyRequest struct {
	Title  string `json:"title"`
	Author string `json:"author,omitempty"`
	ISBN   string `json:"isbn,omitempty"`
}

type ReclaimOverdueRequest struct{}

type ReclaimOverdueResponse struct {
	Scanned   int `json:"scanned"`
	Reclaimed int `json:"reclaimed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

type SweepCredentialsRequest struct{}

type SweepCredentialsResponse struct {
	Scanned int `json:"scanned"`
	Deleted int `json:"deleted"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

type CoverUploadURLRequest struct {
	CopyID string `json:"copy_id"`
}

type CoverUploadURLResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}
