package dto

type ChangeUsernameRequest struct {
	Username string `json:"username"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type UpdateImageRequest struct {
	Image string `json:"image"`
}

type SetLanguageRequest struct {
	Language string `json:"language"`
}

type SetTwoFactorRequest struct {
	Enabled bool `json:"enabled"`
}
