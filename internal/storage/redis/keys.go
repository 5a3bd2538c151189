package redis

import (
	"fmt"

	"github.com/mcoot/gamelobby/internal/model"
)

// Key prefix for all lobby data
const keyPrefix = "lobby"

// Key generation functions for each entity type

// userKey returns the Redis key for a User
func userKey(id model.UserID) string {
	return fmt.Sprintf("%s:user:%s", keyPrefix, id)
}

// userEmailIndexKey returns the Redis key for the email -> user_id index
func userEmailIndexKey(email string) string {
	return fmt.Sprintf("%s:idx:user_email:%s", keyPrefix, email)
}

// userIdentityIndexKey returns the Redis key for the identity -> user_id index
func userIdentityIndexKey(identity string) string {
	return fmt.Sprintf("%s:idx:user_identity:%s", keyPrefix, identity)
}

// roomKey returns the Redis key for a Room
func roomKey(id model.RoomID) string {
	return fmt.Sprintf("%s:room:%s", keyPrefix, id)
}

// roomsByStatusKey returns the Redis key for the ZSET of room ids with a status,
// scored by creation time
func roomsByStatusKey(status model.RoomStatus) string {
	return fmt.Sprintf("%s:idx:rooms_by_status:%s", keyPrefix, status)
}

// playerRoomKey returns the Redis key for the player -> room_id index
func playerRoomKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:idx:player_room:%s", keyPrefix, id)
}

// gameKey returns the Redis key for a GameRegistration
func gameKey(id model.GameID) string {
	return fmt.Sprintf("%s:game:%s", keyPrefix, id)
}

// gameNameIndexKey returns the Redis key for the unique_name -> game_id index
func gameNameIndexKey(uniqueName string) string {
	return fmt.Sprintf("%s:idx:game_name:%s", keyPrefix, uniqueName)
}

// Patterns cleared by DeleteAll
var (
	userPatterns = []string{
		keyPrefix + ":user:*",
		keyPrefix + ":idx:user_email:*",
		keyPrefix + ":idx:user_identity:*",
	}
	roomPatterns = []string{
		keyPrefix + ":room:*",
		keyPrefix + ":idx:rooms_by_status:*",
		keyPrefix + ":idx:player_room:*",
	}
)
