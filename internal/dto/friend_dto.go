package dto

type FriendRequestBody struct {
	UserID uint `json:"user_id"`
}

// FriendSummary is the other party of an edge as shown in listings.
type FriendSummary struct {
	UserID   uint    `json:"user_id"`
	Username *string `json:"username"`
	Image    string  `json:"image"`
}

type FriendListResponse struct {
	Friends  []FriendSummary `json:"friends"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
