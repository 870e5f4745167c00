package model

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type SubscribeRequest struct {
	Subjects []string `json:"subjects"`
}

type SharedUploadRequest struct {
	StagedKey string `json:"staged_key"`
	FileName  string `json:"file_name"`
	Subject   string `json:"subject"`
}
