// Package downtime implements scheduled downtime and comment management.
package downtime

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/oceanplexian/gogios/internal/objects"
)

// Comment represents a Nagios comment (host or service). UUID identifies
// the comment across the cluster; CommentID is the legacy integer ID
// Nagios-compatible external commands and status files still use.
type Comment struct {
	UUID                uuid.UUID
	CommentType         int    // HostCommentType or ServiceCommentType
	EntryType           int    // UserCommentEntry, DowntimeCommentEntry, etc.
	CommentID           uint64
	Source              int    // 0=internal, 1=external
	Persistent          bool
	EntryTime           time.Time
	Expires             bool
	ExpireTime          time.Time
	HostName            string
	ServiceDescription  string
	Author              string
	Data                string
}

// Publisher is notified by Add and Delete, so that a caller (the event bus
// wiring) can replicate the change to peers. AddWithID, the DeleteAll*,
// Delete*AckComments and ExpireComments paths do not notify it.
type Publisher interface {
	CommentAdded(c *Comment)
	CommentRemoved(c *Comment)
}

// CommentManager manages all comments.
type CommentManager struct {
	mu        sync.RWMutex
	comments  map[uint64]*Comment
	nextID    atomic.Uint64
	publisher Publisher
}

// NewCommentManager creates a new comment manager.
func NewCommentManager(startID uint64) *CommentManager {
	cm := &CommentManager{
		comments: make(map[uint64]*Comment),
	}
	cm.nextID.Store(startID)
	return cm
}

// SetPublisher sets the comment lifecycle publisher.
func (cm *CommentManager) SetPublisher(p Publisher) { cm.publisher = p }

// Add adds a comment and returns its ID.
func (cm *CommentManager) Add(c *Comment) uint64 {
	id := cm.nextID.Add(1) - 1
	c.CommentID = id
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.EntryTime.IsZero() {
		c.EntryTime = time.Now()
	}
	cm.mu.Lock()
	cm.comments[id] = c
	cm.mu.Unlock()
	if cm.publisher != nil {
		cm.publisher.CommentAdded(c)
	}
	return id
}

// AddWithID adds a comment with a specific ID (for retention restore).
func (cm *CommentManager) AddWithID(c *Comment) {
	cm.mu.Lock()
	cm.comments[c.CommentID] = c
	cm.mu.Unlock()
	// Ensure nextID stays ahead
	for {
		cur := cm.nextID.Load()
		if c.CommentID < cur {
			break
		}
		if cm.nextID.CompareAndSwap(cur, c.CommentID+1) {
			break
		}
	}
}

// Delete removes a comment by ID.
func (cm *CommentManager) Delete(id uint64) {
	cm.mu.Lock()
	c := cm.comments[id]
	delete(cm.comments, id)
	cm.mu.Unlock()
	if c != nil && cm.publisher != nil {
		cm.publisher.CommentRemoved(c)
	}
}

// Get returns a comment by ID.
func (cm *CommentManager) Get(id uint64) *Comment {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.comments[id]
}

// DeleteAllForHost deletes all comments for a host.
func (cm *CommentManager) DeleteAllForHost(hostName string) {
	cm.mu.Lock()
	for id, c := range cm.comments {
		if c.HostName == hostName && c.CommentType == objects.HostCommentType {
			delete(cm.comments, id)
		}
	}
	cm.mu.Unlock()
}

// DeleteAllForService deletes all comments for a specific service.
func (cm *CommentManager) DeleteAllForService(hostName, svcDesc string) {
	cm.mu.Lock()
	for id, c := range cm.comments {
		if c.HostName == hostName && c.ServiceDescription == svcDesc && c.CommentType == objects.ServiceCommentType {
			delete(cm.comments, id)
		}
	}
	cm.mu.Unlock()
}

// DeleteHostAckComments deletes non-persistent acknowledgement comments for a host.
func (cm *CommentManager) DeleteHostAckComments(hostName string) {
	cm.mu.Lock()
	for id, c := range cm.comments {
		if c.HostName == hostName && c.CommentType == objects.HostCommentType &&
			c.EntryType == objects.AcknowledgementCommentEntry && !c.Persistent {
			delete(cm.comments, id)
		}
	}
	cm.mu.Unlock()
}

// DeleteServiceAckComments deletes non-persistent acknowledgement comments for a service.
func (cm *CommentManager) DeleteServiceAckComments(hostName, svcDesc string) {
	cm.mu.Lock()
	for id, c := range cm.comments {
		if c.HostName == hostName && c.ServiceDescription == svcDesc &&
			c.CommentType == objects.ServiceCommentType &&
			c.EntryType == objects.AcknowledgementCommentEntry && !c.Persistent {
			delete(cm.comments, id)
		}
	}
	cm.mu.Unlock()
}

// ExpireComments removes expired comments.
func (cm *CommentManager) ExpireComments() {
	now := time.Now()
	cm.mu.Lock()
	for id, c := range cm.comments {
		if c.Expires && !c.ExpireTime.IsZero() && c.ExpireTime.Before(now) {
			delete(cm.comments, id)
		}
	}
	cm.mu.Unlock()
}

// All returns all comments.
func (cm *CommentManager) All() []*Comment {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	result := make([]*Comment, 0, len(cm.comments))
	for _, c := range cm.comments {
		result = append(result, c)
	}
	return result
}

// ForHost returns all comments for a host.
func (cm *CommentManager) ForHost(hostName string) []*Comment {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	var result []*Comment
	for _, c := range cm.comments {
		if c.HostName == hostName && c.CommentType == objects.HostCommentType {
			result = append(result, c)
		}
	}
	return result
}

// ForService returns all comments for a service.
func (cm *CommentManager) ForService(hostName, svcDesc string) []*Comment {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	var result []*Comment
	for _, c := range cm.comments {
		if c.HostName == hostName && c.ServiceDescription == svcDesc && c.CommentType == objects.ServiceCommentType {
			result = append(result, c)
		}
	}
	return result
}

// NextID returns the next comment ID value.
func (cm *CommentManager) NextID() uint64 {
	return cm.nextID.Load()
}
