package tempmongo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// SeedData names a target collection and the documents to insert into it.
type SeedData struct {
	Database   string
	Collection string
	Documents  []interface{}
}

func (s SeedData) validate() error {
	if strings.TrimSpace(s.Database) == "" {
		return errors.New("seed database must not be empty")
	}
	if strings.TrimSpace(s.Collection) == "" {
		return errors.New("seed collection must not be empty")
	}
	if len(s.Documents) == 0 {
		return errors.New("seed documents must not be empty")
	}
	return nil
}

// Seed inserts the seed documents through the fixture's client. The manager
// must be active.
func (t *TempMongo) Seed(ctx context.Context, seed SeedData) error {
	if t.state != stateActive {
		return ErrNotConnected
	}
	if err := seed.validate(); err != nil {
		return err
	}
	collection := t.client.Database(seed.Database).Collection(seed.Collection)
	if _, err := collection.InsertMany(ctx, seed.Documents); err != nil {
		return fmt.Errorf("seed %s.%s: %w", seed.Database, seed.Collection, err)
	}
	return nil
}

// SeedExtJSON decodes each raw document from MongoDB extended JSON and
// inserts the batch, so fixtures can be seeded straight from .json files.
func (t *TempMongo) SeedExtJSON(ctx context.Context, database, collection string, docs ...[]byte) error {
	seed := SeedData{
		Database:   database,
		Collection: collection,
		Documents:  make([]interface{}, 0, len(docs)),
	}
	for i, raw := range docs {
		var doc bson.D
		if err := bson.UnmarshalExtJSON(raw, false, &doc); err != nil {
			return fmt.Errorf("decode seed document %d: %w", i, err)
		}
		seed.Documents = append(seed.Documents, doc)
	}
	return t.Seed(ctx, seed)
}
