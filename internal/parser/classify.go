package parser

import (
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/table-tracking/internal/tracking"
)

// Statement is one classified statement of a SQL string.
type Statement struct {
	SQL     string
	Kind    tracking.Kind // empty when the statement is not trackable
	Targets []tracking.TableRef
	// Indexes holds dropped index names for DROP INDEX, whose table must be
	// resolved from the catalog.
	Indexes []tracking.TableRef
	// NewName is the new table name for RENAME TABLE.
	NewName  string
	NoTrack  bool
	Location int
}

// Classify parses sql and classifies every statement by trackable kind.
func Classify(sql string) ([]Statement, error) {
	result, err := Parse(sql)
	if err != nil {
		return nil, err
	}

	stmts := make([]Statement, 0, len(result.Stmts))

	for i, raw := range result.Stmts {
		text := result.Text(i)

		s := Statement{
			SQL:      text,
			NoTrack:  strings.Contains(text, tracking.NoTrackMarker),
			Location: int(raw.StmtLocation),
		}
		classifyNode(raw.Stmt, &s)

		stmts = append(stmts, s)
	}

	return stmts, nil
}

// ClassifyOne classifies a single statement. It fails when sql holds more
// than one statement.
func ClassifyOne(sql string) (Statement, error) {
	stmts, err := Classify(sql)
	if err != nil {
		return Statement{}, err
	}

	if len(stmts) != 1 {
		return Statement{}, fmt.Errorf("%w: got %d", ErrNotSingleStatement, len(stmts))
	}

	return stmts[0], nil
}

//nolint:cyclop,funlen // one case per statement node type
func classifyNode(node *pg_query.Node, s *Statement) {
	if node == nil {
		return
	}

	switch n := node.Node.(type) {
	case *pg_query.Node_CreateStmt:
		s.Kind = tracking.CreateTable
		s.Targets = refs(n.CreateStmt.GetRelation())

	case *pg_query.Node_AlterTableStmt:
		s.Kind = tracking.AlterTable
		if n.AlterTableStmt.GetObjtype() == pg_query.ObjectType_OBJECT_VIEW {
			s.Kind = tracking.AlterView
		}

		s.Targets = refs(n.AlterTableStmt.GetRelation())

	case *pg_query.Node_RenameStmt:
		classifyRename(n.RenameStmt, s)

	case *pg_query.Node_DropStmt:
		classifyDrop(n.DropStmt, s)

	case *pg_query.Node_ViewStmt:
		s.Kind = tracking.CreateView
		s.Targets = refs(n.ViewStmt.GetView())

	case *pg_query.Node_IndexStmt:
		s.Kind = tracking.CreateIndex
		s.Targets = refs(n.IndexStmt.GetRelation())

	case *pg_query.Node_InsertStmt:
		s.Kind = tracking.Insert
		s.Targets = refs(n.InsertStmt.GetRelation())

	case *pg_query.Node_UpdateStmt:
		s.Kind = tracking.Update
		s.Targets = refs(n.UpdateStmt.GetRelation())

	case *pg_query.Node_DeleteStmt:
		s.Kind = tracking.Delete
		s.Targets = refs(n.DeleteStmt.GetRelation())

	case *pg_query.Node_TruncateStmt:
		s.Kind = tracking.Truncate

		for _, rel := range n.TruncateStmt.GetRelations() {
			if rv, ok := rel.Node.(*pg_query.Node_RangeVar); ok {
				s.Targets = append(s.Targets, TableRef(rv.RangeVar))
			}
		}
	}
}

func classifyRename(rename *pg_query.RenameStmt, s *Statement) {
	if rename == nil {
		return
	}

	s.Targets = refs(rename.GetRelation())

	switch rename.GetRenameType() {
	case pg_query.ObjectType_OBJECT_TABLE:
		s.Kind = tracking.RenameTable
		s.NewName = rename.GetNewname()
	case pg_query.ObjectType_OBJECT_VIEW:
		s.Kind = tracking.AlterView
	case pg_query.ObjectType_OBJECT_COLUMN, pg_query.ObjectType_OBJECT_TABCONSTRAINT:
		s.Kind = tracking.AlterTable
		if rename.GetRelationType() == pg_query.ObjectType_OBJECT_VIEW {
			s.Kind = tracking.AlterView
		}
	default:
		s.Targets = nil
	}
}

func classifyDrop(drop *pg_query.DropStmt, s *Statement) {
	if drop == nil {
		return
	}

	names := dropNames(drop)

	switch drop.GetRemoveType() {
	case pg_query.ObjectType_OBJECT_TABLE:
		s.Kind = tracking.DropTable
		s.Targets = names
	case pg_query.ObjectType_OBJECT_VIEW:
		s.Kind = tracking.DropView
		s.Targets = names
	case pg_query.ObjectType_OBJECT_INDEX:
		s.Kind = tracking.DropIndex
		s.Indexes = names
	}
}

// dropNames extracts the possibly schema-qualified object names of a DROP.
func dropNames(drop *pg_query.DropStmt) []tracking.TableRef {
	var out []tracking.TableRef

	for _, obj := range drop.GetObjects() {
		list, ok := obj.Node.(*pg_query.Node_List)
		if !ok {
			continue
		}

		var parts []string

		for _, item := range list.List.GetItems() {
			if str, ok := item.Node.(*pg_query.Node_String_); ok {
				parts = append(parts, str.String_.GetSval())
			}
		}

		switch len(parts) {
		case 0:
		case 1:
			out = append(out, tracking.TableRef{Table: parts[0]})
		default:
			out = append(out, tracking.TableRef{
				Schema: parts[len(parts)-2],
				Table:  parts[len(parts)-1],
			})
		}
	}

	return out
}

// TableRef converts a RangeVar to a table reference.
func TableRef(rv *pg_query.RangeVar) tracking.TableRef {
	if rv == nil {
		return tracking.TableRef{}
	}

	return tracking.TableRef{Schema: rv.GetSchemaname(), Table: rv.GetRelname()}
}

func refs(rv *pg_query.RangeVar) []tracking.TableRef {
	if rv == nil {
		return nil
	}

	return []tracking.TableRef{TableRef(rv)}
}
