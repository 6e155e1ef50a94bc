// Package session holds the process-wide directory of live realtime
// connections, keyed by authenticated user.
package session

import (
	"slices"
	"sync"
)

// Directory maps each online user to the ID of their single live connection.
// A newer connection for the same user replaces the older record.
type Directory struct {
	mu     sync.RWMutex
	byUser map[string]string // userID -> connID
	byConn map[string]string // connID -> userID
}

// New creates an empty Directory.
func New() *Directory {
	return &Directory{
		byUser: make(map[string]string),
		byConn: make(map[string]string),
	}
}

// Register binds connID to userID, overwriting any existing record for the user.
// It returns the superseded connection ID, or "" if there was none.
func (d *Directory) Register(userID, connID string) (superseded string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if prev, ok := d.byUser[userID]; ok && prev != connID {
		delete(d.byConn, prev)
		superseded = prev
	}
	d.byUser[userID] = connID
	d.byConn[connID] = userID
	return superseded
}

// Unregister removes the record owning connID. A connID that is no longer the
// user's current connection is ignored, so a late disconnect from a superseded
// connection cannot evict the live one.
func (d *Directory) Unregister(connID string) (userID string, removed bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	userID, ok := d.byConn[connID]
	if !ok {
		return "", false
	}
	delete(d.byConn, connID)
	if d.byUser[userID] != connID {
		return userID, false
	}
	delete(d.byUser, userID)
	return userID, true
}

// Lookup returns the live connection for userID.
func (d *Directory) Lookup(userID string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	connID, ok := d.byUser[userID]
	return connID, ok
}

// AllUserIDs returns a sorted snapshot of the users currently online.
func (d *Directory) AllUserIDs() []string {
	d.mu.RLock()
	ids := make([]string, 0, len(d.byUser))
	for id := range d.byUser {
		ids = append(ids, id)
	}
	d.mu.RUnlock()

	slices.Sort(ids)
	return ids
}

// Len returns the number of online users.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byUser)
}
