package managed

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vothanachyes/telegram-user-tracking-sub004/document"
	"github.com/vothanachyes/telegram-user-tracking-sub004/target"
)

// FirestoreSource adapts the Firestore SDK's snapshot listeners
type FirestoreSource struct {
	client *firestore.Client
}

var _ Source = (*FirestoreSource)(nil)

// NewFirestoreSource connects with the given service account credentials only
func NewFirestoreSource(ctx context.Context, projectID, databaseID string, creds *Credentials, opts ...option.ClientOption) (*FirestoreSource, error) {
	if creds == nil {
		return nil, fmt.Errorf("firestore source requires explicit credentials")
	}
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	opts = append([]option.ClientOption{option.WithCredentialsFile(creds.Path)}, opts...)
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	return &FirestoreSource{client: client}, nil
}

// Query opens a query snapshot listener for a collection target
func (s *FirestoreSource) Query(ctx context.Context, t target.Target) (QueryIterator, error) {
	q := s.client.Collection(t.Path()).Query
	for _, f := range t.Filters() {
		q = q.Where(f.Field, string(f.Op), filterValue(s.client, f.Value))
	}
	return &firestoreQueryIterator{it: q.Snapshots(ctx)}, nil
}

// Document opens a document snapshot listener
func (s *FirestoreSource) Document(ctx context.Context, t target.Target) (DocumentIterator, error) {
	ref := s.client.Doc(t.Path())
	if ref == nil {
		return nil, fmt.Errorf("%w: %q", target.ErrInvalidPath, t.Path())
	}
	return &firestoreDocumentIterator{it: ref.Snapshots(ctx), id: ref.ID}, nil
}

// Close releases the SDK client
func (s *FirestoreSource) Close() error {
	return s.client.Close()
}

type firestoreQueryIterator struct {
	it *firestore.QuerySnapshotIterator
}

func (f *firestoreQueryIterator) Next() (*QuerySnapshot, error) {
	qs, err := f.it.Next()
	if err != nil {
		return nil, translateError(err)
	}

	out := &QuerySnapshot{
		Changes: make([]Change, 0, len(qs.Changes)),
		Present: make(map[string]struct{}, qs.Size),
	}
	for _, ch := range qs.Changes {
		doc, err := fromSDK(ch.Doc)
		if err != nil {
			return nil, err
		}
		out.Changes = append(out.Changes, Change{Kind: changeKind(ch.Kind), Doc: doc})
	}

	docs, err := qs.Documents.GetAll()
	if err != nil {
		return nil, translateError(err)
	}
	for _, d := range docs {
		out.Present[d.Ref.ID] = struct{}{}
	}
	return out, nil
}

func (f *firestoreQueryIterator) Stop() { f.it.Stop() }

type firestoreDocumentIterator struct {
	it *firestore.DocumentSnapshotIterator
	id string
}

func (f *firestoreDocumentIterator) Next() (*DocumentSnapshot, error) {
	snap, err := f.it.Next()
	if err != nil && status.Code(err) != codes.NotFound {
		return nil, translateError(err)
	}
	if snap == nil || !snap.Exists() {
		return &DocumentSnapshot{ID: f.id}, nil
	}

	doc, err := fromSDK(snap)
	if err != nil {
		return nil, err
	}
	return &DocumentSnapshot{ID: f.id, Exists: true, Doc: doc}, nil
}

func (f *firestoreDocumentIterator) Stop() { f.it.Stop() }

func changeKind(k firestore.DocumentChangeKind) ChangeKind {
	switch k {
	case firestore.DocumentRemoved:
		return ChangeRemoved
	case firestore.DocumentModified:
		return ChangeModified
	default:
		return ChangeAdded
	}
}

func translateError(err error) error {
	switch {
	case errors.Is(err, iterator.Done):
		return ErrIteratorDone
	case status.Code(err) == codes.Canceled:
		return fmt.Errorf("%w: %w", context.Canceled, err)
	default:
		return err
	}
}

// fromSDK converts an SDK snapshot into a document snapshot
func fromSDK(snap *firestore.DocumentSnapshot) (document.Snapshot, error) {
	path, err := document.RelativePath(snap.Ref.Path)
	if err != nil {
		return document.Snapshot{}, err
	}

	fields, err := document.FieldsFromNative(snap.Data(), sdkConverter)
	if err != nil {
		return document.Snapshot{}, fmt.Errorf("convert %s: %w", path, err)
	}

	out := document.NewSnapshot(path, fields)
	out.CreateTime = snap.CreateTime
	out.UpdateTime = snap.UpdateTime
	return out, nil
}

// latLng matches the SDK's coordinate type without importing its proto package
type latLng interface {
	GetLatitude() float64
	GetLongitude() float64
}

// sdkConverter handles the SDK's reference and coordinate values
func sdkConverter(v any) (document.Value, bool, error) {
	switch x := v.(type) {
	case *firestore.DocumentRef:
		if x == nil {
			return document.Null(), true, nil
		}
		return document.ReferenceValue(x.Path), true, nil
	case latLng:
		return document.GeoPointValue(x.GetLatitude(), x.GetLongitude()), true, nil
	}
	return document.Value{}, false, nil
}

// filterValue converts a filter operand back into an SDK value
func filterValue(client *firestore.Client, v document.Value) any {
	if ref, ok := v.Reference(); ok {
		if rel, err := document.RelativePath(ref); err == nil {
			return client.Doc(rel)
		}
	}
	return v.Native()
}
