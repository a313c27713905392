package redis

import (
	"fmt"

	"github.com/mcoot/wsgate/internal/model"
)

const keyPrefix = "wsgate"

func accountKey(id model.UserID) string {
	return fmt.Sprintf("%s:account:%s", keyPrefix, id)
}

// accountNameIndexKey maps an account name to its user id
func accountNameIndexKey(name string) string {
	return fmt.Sprintf("%s:idx:accountname:%s", keyPrefix, name)
}

func profileKey(owner model.UserID) string {
	return fmt.Sprintf("%s:profile:%s", keyPrefix, owner)
}

func clientConfigKey(id model.ClientID) string {
	return fmt.Sprintf("%s:clientconfig:%s", keyPrefix, id)
}

// clientConfigsIndexKey returns the SET of client config keys owned by a user
func clientConfigsIndexKey(owner model.UserID) string {
	return fmt.Sprintf("%s:idx:clientconfigs:%s", keyPrefix, owner)
}
