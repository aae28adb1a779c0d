// Package document implements datasource.DocumentAdapter over MongoDB.
package document

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jordigilh/investigator/pkg/datasource"
	"github.com/jordigilh/investigator/pkg/domain"
)

func init() {
	datasource.Register(
		datasource.SourceMongoDB,
		datasource.Definition{
			DisplayName: "MongoDB",
			Category:    datasource.CategoryDocument,
			Description: "MongoDB document collections",
		},
		newMongoAdapter,
	)
}

// MongoAdapter probes a MongoDB database through the official driver.
// Schema inference is necessarily approximate: document collections
// have no declared structure, so GetSchema and InferSchema both sample
// documents and union the field names and BSON types they observe.
type MongoAdapter struct {
	cfg      datasource.Config
	client   *mongo.Client
	database string
}

func newMongoAdapter(cfg datasource.Config) (datasource.Adapter, error) {
	if cfg.Endpoint == "" {
		return nil, datasource.NewAdapterError(datasource.CodeMissingRequiredField, "mongodb adapter requires endpoint (connection URI)", nil)
	}
	database, _ := cfg.Options["database"].(string)
	if database == "" {
		return nil, datasource.NewAdapterError(datasource.CodeMissingRequiredField, "mongodb adapter requires options.database", nil)
	}
	return &MongoAdapter{cfg: cfg, database: database}, nil
}

func (a *MongoAdapter) Connect(ctx context.Context) error {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(a.cfg.Endpoint))
	if err != nil {
		return datasource.NewAdapterError(datasource.CodeConnectionFailed, "failed to connect to mongodb", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(connectCtx)
		return datasource.NewAdapterError(datasource.CodeConnectionFailed, "mongodb ping failed", err)
	}
	a.client = client
	return nil
}

func (a *MongoAdapter) Disconnect(ctx context.Context) error {
	if a.client != nil {
		return a.client.Disconnect(ctx)
	}
	return nil
}

func (a *MongoAdapter) TestConnection(ctx context.Context) error {
	if a.client == nil {
		return datasource.NewAdapterError(datasource.CodeConnectionFailed, "adapter not connected", nil)
	}
	if err := a.client.Ping(ctx, nil); err != nil {
		return datasource.NewAdapterError(datasource.CodeConnectionFailed, "mongodb ping failed", err)
	}
	return nil
}

func (a *MongoAdapter) collection(name string) *mongo.Collection {
	return a.client.Database(a.database).Collection(name)
}

func (a *MongoAdapter) ScanCollection(ctx context.Context, collection string, filter map[string]interface{}, limit int) (domain.QueryResult, error) {
	if limit <= 0 {
		limit = 50
	}
	start := time.Now()
	findOpts := options.Find().SetLimit(int64(limit))
	cursor, err := a.collection(collection).Find(ctx, bson.M(filter), findOpts)
	if err != nil {
		return domain.QueryResult{}, classifyMongoErr(err)
	}
	defer cursor.Close(ctx)
	return drainCursor(ctx, cursor, start)
}

func drainCursor(ctx context.Context, cursor *mongo.Cursor, start time.Time) (domain.QueryResult, error) {
	var rows []map[string]interface{}
	fieldSeen := map[string]bool{}
	var fieldOrder []string

	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return domain.QueryResult{}, datasource.NewAdapterError(datasource.CodeInternalError, "failed to decode document", err)
		}
		row := map[string]interface{}(doc)
		rows = append(rows, row)
		for k := range row {
			if !fieldSeen[k] {
				fieldSeen[k] = true
				fieldOrder = append(fieldOrder, k)
			}
		}
	}
	if err := cursor.Err(); err != nil {
		return domain.QueryResult{}, classifyMongoErr(err)
	}

	cols := make([]domain.ResultColumn, len(fieldOrder))
	for i, name := range fieldOrder {
		cols[i] = domain.ResultColumn{Name: name, DataType: domain.TypeUnknown}
	}

	return domain.QueryResult{
		Columns:         cols,
		Rows:            rows,
		RowCount:        len(rows),
		ExecutionTimeMs: time.Since(start).Milliseconds(),
	}, nil
}

func (a *MongoAdapter) CountDocuments(ctx context.Context, collection string, filter map[string]interface{}) (int64, error) {
	count, err := a.collection(collection).CountDocuments(ctx, bson.M(filter))
	if err != nil {
		return 0, classifyMongoErr(err)
	}
	return count, nil
}

func (a *MongoAdapter) Aggregate(ctx context.Context, collection string, pipeline []map[string]interface{}) (domain.QueryResult, error) {
	start := time.Now()
	stages := make(mongo.Pipeline, 0, len(pipeline))
	for _, stage := range pipeline {
		doc := bson.D{}
		for k, v := range stage {
			doc = append(doc, bson.E{Key: k, Value: v})
		}
		stages = append(stages, doc)
	}
	cursor, err := a.collection(collection).Aggregate(ctx, stages)
	if err != nil {
		return domain.QueryResult{}, classifyMongoErr(err)
	}
	defer cursor.Close(ctx)
	return drainCursor(ctx, cursor, start)
}

// InferSchema samples sampleSize documents and unions their top-level
// field names into a Table, typed from the BSON kind of the first
// non-null value observed for each field.
func (a *MongoAdapter) InferSchema(ctx context.Context, collection string, sampleSize int) (domain.Table, error) {
	if sampleSize <= 0 {
		sampleSize = 100
	}
	cursor, err := a.collection(collection).Find(ctx, bson.M{}, options.Find().SetLimit(int64(sampleSize)))
	if err != nil {
		return domain.Table{}, classifyMongoErr(err)
	}
	defer cursor.Close(ctx)

	seen := map[string]string{}
	var order []string
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return domain.Table{}, datasource.NewAdapterError(datasource.CodeInternalError, "failed to decode document", err)
		}
		for k, v := range doc {
			if _, ok := seen[k]; !ok {
				order = append(order, k)
				seen[k] = ""
			}
			if v != nil && seen[k] == "" {
				seen[k] = bsonKind(v)
			}
		}
	}

	cols := make([]domain.Column, len(order))
	for i, name := range order {
		native := seen[name]
		cols[i] = domain.Column{Name: name, NativeType: native, DataType: datasource.NormalizeType("mongodb", native), Nullable: true}
	}

	return domain.Table{Name: collection, NativePath: fmt.Sprintf("%s.%s", a.database, collection), TableType: domain.TableKindCollection, Columns: cols}, nil
}

func bsonKind(v interface{}) string {
	switch v.(type) {
	case int32, int64, int:
		return "int64"
	case float64:
		return "double"
	case bool:
		return "bool"
	case string:
		return "string"
	case bson.M, map[string]interface{}:
		return "object"
	case bson.A, []interface{}:
		return "array"
	default:
		return "string"
	}
}

func (a *MongoAdapter) GetSchema(ctx context.Context) (domain.SchemaResponse, error) {
	names, err := a.client.Database(a.database).ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return domain.SchemaResponse{}, datasource.NewAdapterError(datasource.CodeSchemaFetchFailed, "failed to list collections", err)
	}

	var tables []domain.Table
	for _, name := range names {
		table, err := a.InferSchema(ctx, name, 50)
		if err != nil {
			return domain.SchemaResponse{}, err
		}
		tables = append(tables, table)
	}

	return domain.SchemaResponse{Catalogs: []domain.Catalog{{Name: a.database, Schemas: []domain.Schema{{Name: a.database, Tables: tables}}}}}, nil
}

func (a *MongoAdapter) Preview(ctx context.Context, table string, limit int) (domain.QueryResult, error) {
	return a.ScanCollection(ctx, table, nil, limit)
}

func (a *MongoAdapter) Sample(ctx context.Context, table string, size int) (domain.QueryResult, error) {
	if size <= 0 {
		size = 100
	}
	cursor, err := a.collection(table).Aggregate(ctx, mongo.Pipeline{
		{{Key: "$sample", Value: bson.D{{Key: "size", Value: size}}}},
	})
	if err != nil {
		return domain.QueryResult{}, classifyMongoErr(err)
	}
	defer cursor.Close(ctx)
	return drainCursor(ctx, cursor, time.Now())
}

func (a *MongoAdapter) CountRows(ctx context.Context, table string) (int64, error) {
	return a.CountDocuments(ctx, table, nil)
}

func (a *MongoAdapter) Capabilities() domain.AdapterCapabilities {
	return domain.AdapterCapabilities{ColumnStats: false, Sampling: true, RowCount: true, Preview: true, Freshness: false, Write: false}
}

func classifyMongoErr(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsTimeout(err) {
		return datasource.NewAdapterError(datasource.CodeQueryTimeout, "mongodb operation timed out", err)
	}
	if mongo.IsNetworkError(err) {
		return datasource.NewAdapterError(datasource.CodeConnectionFailed, "mongodb network error", err)
	}
	return datasource.NewAdapterError(datasource.CodeQuerySyntaxError, "mongodb operation failed", err)
}
