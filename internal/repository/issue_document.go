package repository

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/spec-kit/civic-reporter/internal/domain"
)

type geoPoint struct {
	Type        string    `bson:"type"`
	Coordinates []float64 `bson:"coordinates"`
}

type coordinatesDocument struct {
	Latitude  float64 `bson:"latitude"`
	Longitude float64 `bson:"longitude"`
}

type locationDocument struct {
	Address     string              `bson:"address"`
	Coordinates coordinatesDocument `bson:"coordinates"`
	Point       geoPoint            `bson:"point"`
}

type imageDocument struct {
	URL        string    `bson:"url"`
	PublicID   string    `bson:"publicId"`
	UploadedAt time.Time `bson:"uploadedAt"`
}

type upvoteDocument struct {
	UserID    string    `bson:"userId"`
	CreatedAt time.Time `bson:"createdAt"`
}

type commentDocument struct {
	UserID    string    `bson:"userId"`
	Content   string    `bson:"content"`
	CreatedAt time.Time `bson:"createdAt"`
}

// issueDocument is the stored shape of an issue. upvotesCount and
// priorityWeight are denormalized so list sorts can use indexes.
type issueDocument struct {
	ID                      primitive.ObjectID `bson:"_id,omitempty"`
	Title                   string             `bson:"title"`
	Description             string             `bson:"description"`
	Category                string             `bson:"category"`
	Priority                string             `bson:"priority"`
	PriorityWeight          int                `bson:"priorityWeight"`
	Status                  string             `bson:"status"`
	Department              string             `bson:"department"`
	Location                locationDocument   `bson:"location"`
	Images                  []imageDocument    `bson:"images"`
	ReporterID              string             `bson:"reporterId"`
	AssignedTo              *string            `bson:"assignedTo,omitempty"`
	EstimatedResolutionTime *int               `bson:"estimatedResolutionTime,omitempty"`
	ResolutionNotes         string             `bson:"resolutionNotes,omitempty"`
	ResolvedAt              *time.Time         `bson:"resolvedAt,omitempty"`
	Upvotes                 []upvoteDocument   `bson:"upvotes"`
	UpvotesCount            int                `bson:"upvotesCount"`
	Comments                []commentDocument  `bson:"comments"`
	Tags                    []string           `bson:"tags"`
	IsPublic                bool               `bson:"isPublic"`
	ViewCount               int64              `bson:"viewCount"`
	CreatedAt               time.Time          `bson:"createdAt"`
	UpdatedAt               time.Time          `bson:"updatedAt"`
}

func newGeoPoint(lat, lng float64) geoPoint {
	// GeoJSON orders coordinates longitude first.
	return geoPoint{Type: "Point", Coordinates: []float64{lng, lat}}
}

func issueToDocument(issue *domain.Issue) issueDocument {
	doc := issueDocument{
		Title:          issue.Title,
		Description:    issue.Description,
		Category:       string(issue.Category),
		Priority:       string(issue.Priority),
		PriorityWeight: issue.Priority.Weight(),
		Status:         string(issue.Status),
		Department:     string(issue.Department),
		Location: locationDocument{
			Address: issue.Location.Address,
			Coordinates: coordinatesDocument{
				Latitude:  issue.Location.Latitude,
				Longitude: issue.Location.Longitude,
			},
			Point: newGeoPoint(issue.Location.Latitude, issue.Location.Longitude),
		},
		Images:                  make([]imageDocument, 0, len(issue.Images)),
		ReporterID:              issue.ReporterID,
		AssignedTo:              issue.AssigneeID,
		EstimatedResolutionTime: issue.EstimatedResolutionDays,
		ResolutionNotes:         issue.ResolutionNotes,
		ResolvedAt:              issue.ResolvedAt,
		Upvotes:                 make([]upvoteDocument, 0, len(issue.Upvotes)),
		UpvotesCount:            len(issue.Upvotes),
		Comments:                make([]commentDocument, 0, len(issue.Comments)),
		Tags:                    issue.Tags,
		IsPublic:                issue.IsPublic,
		ViewCount:               issue.ViewCount,
		CreatedAt:               issue.CreatedAt,
		UpdatedAt:               issue.UpdatedAt,
	}
	if issue.ID != "" {
		if oid, err := primitive.ObjectIDFromHex(issue.ID); err == nil {
			doc.ID = oid
		}
	}
	if doc.Tags == nil {
		doc.Tags = []string{}
	}
	for _, img := range issue.Images {
		doc.Images = append(doc.Images, imageDocument{URL: img.URL, PublicID: img.PublicID, UploadedAt: img.UploadedAt})
	}
	for _, vote := range issue.Upvotes {
		doc.Upvotes = append(doc.Upvotes, upvoteDocument{UserID: vote.UserID, CreatedAt: vote.CreatedAt})
	}
	for _, comment := range issue.Comments {
		doc.Comments = append(doc.Comments, commentDocument{UserID: comment.UserID, Content: comment.Content, CreatedAt: comment.CreatedAt})
	}
	return doc
}

func (d issueDocument) toDomain() domain.Issue {
	issue := domain.Issue{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		Category:    domain.Category(d.Category),
		Priority:    domain.IssuePriority(d.Priority),
		Status:      domain.IssueStatus(d.Status),
		Department:  domain.Department(d.Department),
		Location: domain.Location{
			Address:   d.Location.Address,
			Latitude:  d.Location.Coordinates.Latitude,
			Longitude: d.Location.Coordinates.Longitude,
		},
		Images:                  make([]domain.Image, 0, len(d.Images)),
		ReporterID:              d.ReporterID,
		AssigneeID:              d.AssignedTo,
		EstimatedResolutionDays: d.EstimatedResolutionTime,
		ResolutionNotes:         d.ResolutionNotes,
		ResolvedAt:              d.ResolvedAt,
		Upvotes:                 make([]domain.Upvote, 0, len(d.Upvotes)),
		Comments:                make([]domain.Comment, 0, len(d.Comments)),
		Tags:                    d.Tags,
		IsPublic:                d.IsPublic,
		ViewCount:               d.ViewCount,
		CreatedAt:               d.CreatedAt,
		UpdatedAt:               d.UpdatedAt,
	}
	if issue.Tags == nil {
		issue.Tags = []string{}
	}
	for _, img := range d.Images {
		issue.Images = append(issue.Images, domain.Image{URL: img.URL, PublicID: img.PublicID, UploadedAt: img.UploadedAt})
	}
	for _, vote := range d.Upvotes {
		issue.Upvotes = append(issue.Upvotes, domain.Upvote{UserID: vote.UserID, CreatedAt: vote.CreatedAt})
	}
	for _, comment := range d.Comments {
		issue.Comments = append(issue.Comments, domain.Comment{UserID: comment.UserID, Content: comment.Content, CreatedAt: comment.CreatedAt})
	}
	return issue
}
