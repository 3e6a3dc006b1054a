package models

import (
	"encoding/json"
	"time"
)

type EntityType string

const (
	EntityCompany      EntityType = "company"
	EntityPerson       EntityType = "person"
	EntityOrganization EntityType = "organization"
	EntityProduct      EntityType = "product"
)

func ValidEntityType(t EntityType) bool {
	switch t {
	case EntityCompany, EntityPerson, EntityOrganization, EntityProduct:
		return true
	default:
		return false
	}
}

type ResourceType string

const (
	ResourceBlog      ResourceType = "blog"
	ResourceRepo      ResourceType = "repo"
	ResourcePricing   ResourceType = "pricing"
	ResourceJobs      ResourceType = "jobs"
	ResourceChangelog ResourceType = "changelog"
	ResourceDeals     ResourceType = "deals"
)

func ValidResourceType(t ResourceType) bool {
	switch t {
	case ResourceBlog, ResourceRepo, ResourcePricing, ResourceJobs, ResourceChangelog, ResourceDeals:
		return true
	default:
		return false
	}
}

type ChannelType string

const (
	ChannelTelegram ChannelType = "telegram"
	ChannelWebhook  ChannelType = "webhook"
	ChannelKafka    ChannelType = "kafka"
)

func ValidChannelType(t ChannelType) bool {
	switch t {
	case ChannelTelegram, ChannelWebhook, ChannelKafka:
		return true
	default:
		return false
	}
}

type Topic struct {
	ID          int64
	Name        string
	Description string
	Enabled     bool
	CreatedAt   time.Time
}

type Entity struct {
	ID        int64
	TopicID   int64
	Name      string
	URL       string
	Type      EntityType
	Enabled   bool
	CreatedAt time.Time
}

type Resource struct {
	ID            int64
	EntityID      int64
	TopicID       int64
	Name          string
	URL           string
	Type          ResourceType
	Enabled       bool
	LastCheckedAt time.Time
	LastChangedAt time.Time
	CreatedAt     time.Time
}

// Snapshot хранит один результат выборки ресурса. История снимков ресурса
// append-only и упорядочена по FetchedAt.
type Snapshot struct {
	ID          int64
	ResourceID  int64
	EntityID    int64
	TopicID     int64
	ContentHash string
	Content     string
	HasChanges  bool
	FetchedAt   time.Time
}

type Digest struct {
	ID           int64
	ResourceID   int64
	EntityID     int64
	TopicID      int64
	SnapshotID   int64
	ResourceName string
	ResourceType ResourceType
	EntityName   string
	Summary      string
	ChangeType   string
	CreatedAt    time.Time
}

// Subscriber привязан ровно к одной области: топику, сущности или ресурсу.
type Subscriber struct {
	ID            int64
	TopicID       *int64
	EntityID      *int64
	ResourceID    *int64
	ChannelType   ChannelType
	ChannelConfig json.RawMessage
	Enabled       bool
	CreatedAt     time.Time
}
