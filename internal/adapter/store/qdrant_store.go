package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"axon-core/internal/domain/entity"
)

// QdrantStore is the semantic layer of the response cache: embeddings of
// past prompts with their responses, searched by cosine similarity within
// a freshness window.
type QdrantStore struct {
	client         *qdrant.Client
	collectionName string
	freshness      time.Duration
	logger         zerolog.Logger
}

func NewQdrantStore(client *qdrant.Client, collectionName string, freshness time.Duration, logger zerolog.Logger) *QdrantStore {
	return &QdrantStore{
		client:         client,
		collectionName: collectionName,
		freshness:      freshness,
		logger:         logger,
	}
}

func (s *QdrantStore) InitCollection(ctx context.Context, dim uint64) error {
	_, err := s.client.GetCollectionInfo(ctx, s.collectionName)
	if err != nil {
		st, ok := status.FromError(err)
		if ok && st.Code() == codes.NotFound {
			err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
				CollectionName: s.collectionName,
				VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
					Size:     dim,
					Distance: qdrant.Distance_Cosine,
				}),
			})
			if err != nil {
				return fmt.Errorf("failed to create collection: %w", err)
			}
		} else {
			return err
		}
	}

	// Payload index on created_at keeps the freshness range filter fast.
	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: s.collectionName,
		FieldName:      "created_at",
		FieldType:      qdrant.FieldType_FieldTypeInteger.Enum(),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		// The index may already exist; not fatal.
		s.logger.Warn().Err(err).Msg("could not create created_at index")
	}

	return nil
}

func (s *QdrantStore) Search(ctx context.Context, vector []float32, threshold float32) (*entity.GenerationResponse, string, error) {
	cutoff := time.Now().Add(-s.freshness).Unix()
	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{
			{
				ConditionOneOf: &qdrant.Condition_Field{
					Field: &qdrant.FieldCondition{
						Key: "created_at",
						Range: &qdrant.Range{
							Gte: qdrant.PtrOf(float64(cutoff)),
						},
					},
				},
			},
		},
	}

	res, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collectionName,
		Query:          qdrant.NewQuery(vector...),
		Filter:         filter,
		Limit:          qdrant.PtrOf(uint64(1)),
		WithPayload:    qdrant.NewWithPayload(true),
		ScoreThreshold: &threshold,
	})
	if err != nil {
		return nil, "", err
	}
	if len(res) == 0 {
		return nil, "", nil
	}

	payload := res[0].Payload
	resp := &entity.GenerationResponse{
		Content: payload["content"].GetStringValue(),
		Model:   payload["model"].GetStringValue(),
		Cached:  true,
	}
	return resp, payload["prompt"].GetStringValue(), nil
}

func (s *QdrantStore) Save(ctx context.Context, prompt string, resp *entity.GenerationResponse, vector []float32) error {
	payload := map[string]any{
		"prompt":     prompt,
		"content":    resp.Content,
		"model":      resp.Model,
		"created_at": time.Now().Unix(),
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collectionName,
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewIDUUID(uuid.NewString()),
				Vectors: qdrant.NewVectors(vector...),
				Payload: qdrant.NewValueMap(payload),
			},
		},
	})
	return err
}
