// Package mongo implements the patient-document store on MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tcgapipe/pkg/domain"
)

// upsertBatchSize bounds one BulkWrite; pan-cancer matrices produce tens of
// thousands of documents per file.
const upsertBatchSize = 1000

// Config holds MongoDB connection settings.
type Config struct {
	URI        string
	Database   string
	Collection string
}

// Store implements the document store on a single MongoDB collection.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// New connects to MongoDB and verifies the connection with a ping.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongo uri required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &Store{client: client, coll: client.Database(cfg.Database).Collection(cfg.Collection)}, nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error { return s.client.Disconnect(ctx) }

// BulkUpsert replaces documents by _id in unordered batches.
func (s *Store) BulkUpsert(ctx context.Context, docs []domain.PatientDocument) (int, error) {
	total := 0
	for start := 0; start < len(docs); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(docs) {
			end = len(docs)
		}
		models := make([]mongo.WriteModel, 0, end-start)
		for _, doc := range docs[start:end] {
			models = append(models, mongo.NewUpdateOneModel().
				SetFilter(bson.M{"_id": doc.ID}).
				SetUpdate(bson.M{"$set": doc}).
				SetUpsert(true))
		}
		res, err := s.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
		if err != nil {
			return total, fmt.Errorf("bulk upsert: %w", err)
		}
		total += int(res.UpsertedCount + res.ModifiedCount)
	}
	return total, nil
}

// UpdateClinical sets the clinical record on every document of each patient.
func (s *Store) UpdateClinical(ctx context.Context, byPatient map[string]domain.Clinical) (int, error) {
	if len(byPatient) == 0 {
		return 0, nil
	}
	models := make([]mongo.WriteModel, 0, len(byPatient))
	total := 0
	flush := func() error {
		if len(models) == 0 {
			return nil
		}
		res, err := s.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
		if err != nil {
			return fmt.Errorf("bulk clinical update: %w", err)
		}
		total += int(res.ModifiedCount)
		models = models[:0]
		return nil
	}
	for patientID, clinical := range byPatient {
		models = append(models, mongo.NewUpdateManyModel().
			SetFilter(bson.M{"patient_id": patientID}).
			SetUpdate(bson.M{"$set": bson.M{"clinical": clinical}}))
		if len(models) >= upsertBatchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := flush(); err != nil {
		return total, err
	}
	return total, nil
}

// FindByPatientID looks up by patient_id, then by _id suffix.
func (s *Store) FindByPatientID(ctx context.Context, patientID string) (domain.PatientDocument, error) {
	var doc domain.PatientDocument
	err := s.coll.FindOne(ctx, bson.M{"patient_id": patientID}).Decode(&doc)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return domain.PatientDocument{}, fmt.Errorf("find patient %s: %w", patientID, err)
	}
	pattern := fmt.Sprintf(":%s$", regexp.QuoteMeta(patientID))
	err = s.coll.FindOne(ctx, bson.M{"_id": bson.M{"$regex": pattern}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.PatientDocument{}, fmt.Errorf("find patient %s: %w", patientID, domain.ErrPatientNotFound)
	}
	if err != nil {
		return domain.PatientDocument{}, fmt.Errorf("find patient %s: %w", patientID, err)
	}
	return doc, nil
}

// Count returns the collection size.
func (s *Store) Count(ctx context.Context) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// CountWithClinical counts documents with a populated clinical record.
func (s *Store) CountWithClinical(ctx context.Context) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"clinical": bson.M{"$exists": true}})
	if err != nil {
		return 0, fmt.Errorf("count clinical documents: %w", err)
	}
	return n, nil
}

// CohortCounts aggregates document counts per cancer cohort.
func (s *Store) CohortCounts(ctx context.Context) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$cancer_cohort", "count": bson.M{"$sum": 1}}}},
	}
	cur, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate cohorts: %w", err)
	}
	defer func() { _ = cur.Close(ctx) }()
	counts := make(map[string]int64)
	for cur.Next(ctx) {
		var row struct {
			Cohort string `bson:"_id"`
			Count  int64  `bson:"count"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode cohort row: %w", err)
		}
		counts[row.Cohort] = row.Count
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("cohort cursor: %w", err)
	}
	return counts, nil
}

// GeneValues streams every stored value of one gene, optionally per cohort.
func (s *Store) GeneValues(ctx context.Context, gene, cohort string) ([]float64, error) {
	field := "genes." + gene
	filter := bson.M{field: bson.M{"$exists": true}}
	if cohort != "" {
		filter["cancer_cohort"] = cohort
	}
	cur, err := s.coll.Find(ctx, filter, options.Find().SetProjection(bson.M{field: 1}))
	if err != nil {
		return nil, fmt.Errorf("find gene %s: %w", gene, err)
	}
	defer func() { _ = cur.Close(ctx) }()
	var values []float64
	for cur.Next(ctx) {
		var row struct {
			Genes map[string]float64 `bson:"genes"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode gene row: %w", err)
		}
		if v, ok := row.Genes[gene]; ok {
			values = append(values, v)
		}
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("gene cursor: %w", err)
	}
	return values, nil
}
