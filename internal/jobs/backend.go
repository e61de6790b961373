package jobs

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/docdesk/docdesk/backend/go-services/internal/config"
	"github.com/docdesk/docdesk/backend/go-services/pkg/logger"
)

// NewStore picks the job-state backend: Mongo when db is set, then Redis,
// then process memory. Only the first two are visible across processes.
func NewStore(ctx context.Context, db *mongo.Database, client *redis.Client, cfg config.JobsConfig, log *logger.Logger) (Store, error) {
	switch {
	case db != nil:
		s := NewMongoStore(db.Collection(cfg.Collection))
		if err := s.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		log.Infof("job state stored in MongoDB collection %q", cfg.Collection)
		return s, nil
	case client != nil:
		log.Infof("job state stored in Redis")
		return NewRedisStore(client, "", cfg.ResultTTL), nil
	default:
		log.Warnf("job state kept in memory; status is only visible to this process")
		return NewMemoryStore(), nil
	}
}

// NewBroker returns the Redis broker when client is set and an in-process
// broker otherwise. The second result reports whether jobs must be run by
// workers inside this process.
func NewBroker(client *redis.Client, cfg config.JobsConfig) (Broker, bool) {
	if client != nil {
		return NewRedisBroker(client, cfg.QueueKey), false
	}
	return NewMemoryBroker(1000), true
}
