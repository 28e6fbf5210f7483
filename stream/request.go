package stream

import (
	"github.com/vothanachyes/telegram-user-tracking-sub004/document"
	"github.com/vothanachyes/telegram-user-tracking-sub004/target"
)

// listenRequest is the POST body of a listen call
type listenRequest struct {
	Database  string       `json:"database"`
	AddTarget listenTarget `json:"addTarget"`
}

type listenTarget struct {
	TargetID  int32            `json:"targetId"`
	Query     *queryTarget     `json:"query,omitempty"`
	Documents *documentsTarget `json:"documents,omitempty"`
}

type documentsTarget struct {
	Documents []string `json:"documents"`
}

type queryTarget struct {
	Parent          string          `json:"parent"`
	StructuredQuery structuredQuery `json:"structuredQuery"`
}

type structuredQuery struct {
	From  []collectionSelector `json:"from"`
	Where *queryFilter         `json:"where,omitempty"`
}

type collectionSelector struct {
	CollectionID string `json:"collectionId"`
}

type queryFilter struct {
	FieldFilter     *fieldFilter     `json:"fieldFilter,omitempty"`
	CompositeFilter *compositeFilter `json:"compositeFilter,omitempty"`
}

type compositeFilter struct {
	Op      string        `json:"op"`
	Filters []queryFilter `json:"filters"`
}

type fieldFilter struct {
	Field fieldReference `json:"field"`
	Op    string         `json:"op"`
	Value document.Value `json:"value"`
}

type fieldReference struct {
	FieldPath string `json:"fieldPath"`
}

// buildListenRequest encodes t as a listen target. Collection targets become
// structured queries, multiple filters are combined with AND.
func buildListenRequest(conf Config, t target.Target) (listenRequest, error) {
	req := listenRequest{
		Database:  document.DatabaseName(conf.ProjectID, conf.DatabaseID),
		AddTarget: listenTarget{TargetID: watchTargetID},
	}

	if t.Kind() == target.KindDocument {
		req.AddTarget.Documents = &documentsTarget{
			Documents: []string{document.ResourceName(conf.ProjectID, conf.DatabaseID, t.Path())},
		}
		return req, nil
	}

	parentPath, collectionID, err := document.SplitCollection(t.Path())
	if err != nil {
		return listenRequest{}, err
	}

	parent := document.DocumentsRoot(conf.ProjectID, conf.DatabaseID)
	if parentPath != "" {
		parent = document.ResourceName(conf.ProjectID, conf.DatabaseID, parentPath)
	}

	req.AddTarget.Query = &queryTarget{
		Parent: parent,
		StructuredQuery: structuredQuery{
			From:  []collectionSelector{{CollectionID: collectionID}},
			Where: buildWhere(t.Filters()),
		},
	}
	return req, nil
}

func buildWhere(filters []target.Filter) *queryFilter {
	if len(filters) == 0 {
		return nil
	}

	clauses := make([]queryFilter, len(filters))
	for i, f := range filters {
		clauses[i] = queryFilter{FieldFilter: &fieldFilter{
			Field: fieldReference{FieldPath: f.Field},
			Op:    f.Op.WireName(),
			Value: f.Value,
		}}
	}

	if len(clauses) == 1 {
		return &clauses[0]
	}
	return &queryFilter{CompositeFilter: &compositeFilter{Op: "AND", Filters: clauses}}
}
