package request

// EnsureUserRequest is the optional body of POST /users/me. Fields override
// the token claims when set.
type EnsureUserRequest struct {
	Nickname string `json:"nickname,omitempty"`
}

// GameRequest is the request body for registering or updating a game
type GameRequest struct {
	UniqueName       string `json:"uniqueName"`
	DisplayName      string `json:"displayName"`
	ShortDescription string `json:"shortDescription"`
	Rule             string `json:"rule"`
	ImageURL         string `json:"imageUrl"`
	MinPlayers       int    `json:"minPlayers"`
	MaxPlayers       int    `json:"maxPlayers"`
	FrontEndURL      string `json:"frontEndUrl"`
	BackEndURL       string `json:"backEndUrl"`
}

// CreateRoomRequest is the request body for creating a room
type CreateRoomRequest struct {
	GameID     string `json:"gameId"`
	Name       string `json:"name"`
	Password   string `json:"password,omitempty"`
	MinPlayers int    `json:"minPlayers"`
	MaxPlayers int    `json:"maxPlayers"`
}

// JoinRoomRequest is the request body for joining a room
type JoinRoomRequest struct {
	Password string `json:"password,omitempty"`
}
