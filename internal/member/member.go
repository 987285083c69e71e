// Package member resolves the participant list for a split.
//
// Usernames are the identity key and are always compared case-insensitively.
// The backend is inconsistent about member shape: group detail responses may
// carry bare username strings or {"username": ...} objects. Ref accepts both;
// Resolve then produces the canonical lowercase list downstream code works
// with.
package member

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Ref is one raw group member as received from the backend.
type Ref struct {
	Username string
}

// UnmarshalJSON accepts either "alice" or {"username": "alice"}.
func (r *Ref) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		r.Username = s
		return nil
	}
	var obj struct {
		Username string `json:"username"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("member must be a string or an object with username: %w", err)
	}
	r.Username = obj.Username
	return nil
}

// Canonical lowercases and trims a username.
func Canonical(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// Same reports whether two usernames refer to the same member.
func Same(a, b string) bool {
	return Canonical(a) == Canonical(b)
}

// Resolve returns the ordered, duplicate-free list of canonical usernames
// for a split. The acting user is always included even when the supplied
// membership omits them: a user operating on a group must be able to split
// with themselves.
func Resolve(refs []Ref, actingUser string) []string {
	seen := make(map[string]bool, len(refs)+1)
	resolved := make([]string, 0, len(refs)+1)

	add := func(username string) {
		name := Canonical(username)
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		resolved = append(resolved, name)
	}

	for _, ref := range refs {
		add(ref.Username)
	}
	add(actingUser)

	return resolved
}

// Contains reports whether username is in the (canonical) list.
func Contains(members []string, username string) bool {
	name := Canonical(username)
	for _, m := range members {
		if m == name {
			return true
		}
	}
	return false
}
