package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/spec-kit/civic-reporter/internal/domain"
)

// IssuesCollection is the Mongo collection holding issue documents.
const IssuesCollection = "issues"

// ErrIssueNotFound is returned when no issue matches the given id.
var ErrIssueNotFound = errors.New("issue not found")

// IssueRepository encapsulates issue persistence. It holds no business rules;
// department derivation and authorization happen in the service layer.
type IssueRepository interface {
	Create(ctx context.Context, issue *domain.Issue) error
	GetByID(ctx context.Context, id string) (*domain.Issue, error)
	Exists(ctx context.Context, id string) (bool, error)
	// IncrementViews bumps viewCount and returns the updated issue.
	IncrementViews(ctx context.Context, id string) (*domain.Issue, error)
	ApplyChanges(ctx context.Context, id string, changes IssueChanges) (*domain.Issue, error)
	Delete(ctx context.Context, id string) error
	// AddUpvote records vote unless the user already has one. The bool
	// reports whether the vote was added.
	AddUpvote(ctx context.Context, id string, vote domain.Upvote) (*domain.Issue, bool, error)
	// RemoveUpvote drops userID's vote if present. The bool reports whether
	// a vote was removed.
	RemoveUpvote(ctx context.Context, id, userID string) (*domain.Issue, bool, error)
	AddComment(ctx context.Context, id string, comment domain.Comment) (*domain.Issue, error)
	List(ctx context.Context, filter IssueFilter) ([]domain.Issue, int64, error)
	FindNearby(ctx context.Context, longitude, latitude, maxDistanceMeters float64, limit int) ([]domain.Issue, error)
	CountByStatus(ctx context.Context) ([]domain.StatusCount, error)
	CountByCategory(ctx context.Context) ([]domain.CategoryCount, error)
}

type issueRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewIssueRepository returns a Mongo-backed implementation.
func NewIssueRepository(coll *mongo.Collection) IssueRepository {
	return &issueRepository{coll: coll, now: time.Now}
}

// EnsureIssueIndexes creates the indexes list, sort and geo queries rely on.
func EnsureIssueIndexes(ctx context.Context, coll *mongo.Collection) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "location.point", Value: "2dsphere"}}},
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "reporterId", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "priorityWeight", Value: -1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "upvotesCount", Value: -1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
	}
	_, err := coll.Indexes().CreateMany(ctx, models)
	return err
}

func (r *issueRepository) Create(ctx context.Context, issue *domain.Issue) error {
	now := r.now().UTC()
	issue.CreatedAt = now
	issue.UpdatedAt = now

	doc := issueToDocument(issue)
	doc.ID = primitive.NewObjectID()
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return err
	}
	issue.ID = doc.ID.Hex()
	return nil
}

func (r *issueRepository) GetByID(ctx context.Context, id string) (*domain.Issue, error) {
	oid, err := parseIssueID(id)
	if err != nil {
		return nil, err
	}
	var doc issueDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, translateMongoErr(err)
	}
	issue := doc.toDomain()
	return &issue, nil
}

func (r *issueRepository) Exists(ctx context.Context, id string) (bool, error) {
	oid, err := parseIssueID(id)
	if err != nil {
		return false, nil
	}
	count, err := r.coll.CountDocuments(ctx, bson.M{"_id": oid}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *issueRepository) IncrementViews(ctx context.Context, id string) (*domain.Issue, error) {
	oid, err := parseIssueID(id)
	if err != nil {
		return nil, err
	}
	return r.findOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$inc": bson.M{"viewCount": 1}})
}

func (r *issueRepository) ApplyChanges(ctx context.Context, id string, changes IssueChanges) (*domain.Issue, error) {
	oid, err := parseIssueID(id)
	if err != nil {
		return nil, err
	}
	return r.findOneAndUpdate(ctx, bson.M{"_id": oid}, buildIssueUpdate(changes, r.now().UTC()))
}

func (r *issueRepository) Delete(ctx context.Context, id string) error {
	oid, err := parseIssueID(id)
	if err != nil {
		return err
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrIssueNotFound
	}
	return nil
}

func (r *issueRepository) AddUpvote(ctx context.Context, id string, vote domain.Upvote) (*domain.Issue, bool, error) {
	oid, err := parseIssueID(id)
	if err != nil {
		return nil, false, err
	}
	filter := bson.M{"_id": oid, "upvotes.userId": bson.M{"$ne": vote.UserID}}
	update := bson.M{
		"$push": bson.M{"upvotes": upvoteDocument{UserID: vote.UserID, CreatedAt: vote.CreatedAt}},
		"$inc":  bson.M{"upvotesCount": 1},
		"$set":  bson.M{"updatedAt": r.now().UTC()},
	}
	return r.conditionalUpdate(ctx, filter, update)
}

func (r *issueRepository) RemoveUpvote(ctx context.Context, id, userID string) (*domain.Issue, bool, error) {
	oid, err := parseIssueID(id)
	if err != nil {
		return nil, false, err
	}
	filter := bson.M{"_id": oid, "upvotes.userId": userID}
	update := bson.M{
		"$pull": bson.M{"upvotes": bson.M{"userId": userID}},
		"$inc":  bson.M{"upvotesCount": -1},
		"$set":  bson.M{"updatedAt": r.now().UTC()},
	}
	return r.conditionalUpdate(ctx, filter, update)
}

func (r *issueRepository) AddComment(ctx context.Context, id string, comment domain.Comment) (*domain.Issue, error) {
	oid, err := parseIssueID(id)
	if err != nil {
		return nil, err
	}
	update := bson.M{
		"$push": bson.M{"comments": commentDocument{UserID: comment.UserID, Content: comment.Content, CreatedAt: comment.CreatedAt}},
		"$set":  bson.M{"updatedAt": r.now().UTC()},
	}
	return r.findOneAndUpdate(ctx, bson.M{"_id": oid}, update)
}

func (r *issueRepository) List(ctx context.Context, filter IssueFilter) ([]domain.Issue, int64, error) {
	query := buildIssueFilter(filter)
	limit, offset := normalizePaging(filter.Limit, filter.Offset)

	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	findOptions := options.Find().
		SetSort(issueSortFor(filter.Sort)).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, query, findOptions)
	if err != nil {
		return nil, 0, err
	}
	issues, err := decodeIssues(ctx, cursor)
	if err != nil {
		return nil, 0, err
	}
	return issues, total, nil
}

func (r *issueRepository) FindNearby(ctx context.Context, longitude, latitude, maxDistanceMeters float64, limit int) ([]domain.Issue, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	query := bson.M{
		"isPublic": true,
		"location.point": bson.M{
			"$near": bson.M{
				"$geometry":    newGeoPoint(latitude, longitude),
				"$maxDistance": maxDistanceMeters,
			},
		},
	}
	// $near already orders by distance; an explicit sort would override it.
	cursor, err := r.coll.Find(ctx, query, options.Find().SetLimit(int64(limit)))
	if err != nil {
		return nil, err
	}
	return decodeIssues(ctx, cursor)
}

func (r *issueRepository) CountByStatus(ctx context.Context) ([]domain.StatusCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	}
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []groupCount
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	counts := make([]domain.StatusCount, 0, len(rows))
	for _, row := range rows {
		counts = append(counts, domain.StatusCount{Status: domain.IssueStatus(row.Key), Count: row.Count})
	}
	return counts, nil
}

func (r *issueRepository) CountByCategory(ctx context.Context) ([]domain.CategoryCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$category", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []groupCount
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	counts := make([]domain.CategoryCount, 0, len(rows))
	for _, row := range rows {
		counts = append(counts, domain.CategoryCount{Category: domain.Category(row.Key), Count: row.Count})
	}
	return counts, nil
}

type groupCount struct {
	Key   string `bson:"_id"`
	Count int64  `bson:"count"`
}

func (r *issueRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*domain.Issue, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc issueDocument
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		return nil, translateMongoErr(err)
	}
	issue := doc.toDomain()
	return &issue, nil
}

// conditionalUpdate applies update when filter matches; a miss is reported
// as (nil, false, nil) so callers can tell it apart from a missing issue.
func (r *issueRepository) conditionalUpdate(ctx context.Context, filter, update bson.M) (*domain.Issue, bool, error) {
	issue, err := r.findOneAndUpdate(ctx, filter, update)
	if errors.Is(err, ErrIssueNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return issue, true, nil
}

func decodeIssues(ctx context.Context, cursor *mongo.Cursor) ([]domain.Issue, error) {
	defer cursor.Close(ctx)
	var docs []issueDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	issues := make([]domain.Issue, 0, len(docs))
	for _, doc := range docs {
		issues = append(issues, doc.toDomain())
	}
	return issues, nil
}

func parseIssueID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrIssueNotFound
	}
	return oid, nil
}

func translateMongoErr(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrIssueNotFound
	}
	return err
}
