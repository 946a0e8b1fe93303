package repository

import (
	"fmt"

	"github.com/eslsoft/vocsync/internal/repository"
	"github.com/eslsoft/vocsync/pkg/filterexpr"
)

var wordFilterFields = map[string]filterexpr.Field{
	"headword":   {Kind: filterexpr.String, Ops: []filterexpr.Op{filterexpr.Eq, filterexpr.Prefix, filterexpr.In}},
	"language":   {Kind: filterexpr.String, Ops: []filterexpr.Op{filterexpr.Eq}},
	"tag":        {Kind: filterexpr.String, Ops: []filterexpr.Op{filterexpr.Eq}},
	"favorite":   {Kind: filterexpr.Bool, Ops: []filterexpr.Op{filterexpr.Eq}},
	"synced":     {Kind: filterexpr.Bool, Ops: []filterexpr.Op{filterexpr.Eq}},
	"difficulty": {Kind: filterexpr.Number, Ops: []filterexpr.Op{filterexpr.Gte, filterexpr.Lte}},
}

var wordOrder = filterexpr.OrderSpec{
	Keys:     []string{"updated_at", "headword", "difficulty", "id"},
	Default:  []filterexpr.OrderTerm{{Key: "updated_at", Desc: true}},
	Tiebreak: "id",
}

// wordOrderColumns maps order keys to SQL; absent values sort last.
var wordOrderColumns = map[string]string{
	"updated_at": "updated_at",
	"headword":   "LOWER(headword)",
	"difficulty": "difficulty",
	"id":         "id",
}

// listWordsParams receives the bound filter and order of a word listing.
type listWordsParams struct {
	Headword       string
	HeadwordPrefix string
	Headwords      []string
	Language       string
	Tag            string
	Favorite       *bool
	Synced         *bool
	MinDifficulty  *int
	MaxDifficulty  *int

	Order []filterexpr.OrderTerm
}

func bindListWords(query *repository.ListWordQuery) (*listWordsParams, error) {
	preds, err := filterexpr.Parse(query.GetFilter(), wordFilterFields)
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	p := &listWordsParams{}
	for _, pred := range preds {
		switch pred.Field {
		case "headword":
			switch pred.Op {
			case filterexpr.Prefix:
				p.HeadwordPrefix = pred.Str()
			case filterexpr.In:
				p.Headwords = pred.Strings()
			default:
				p.Headword = pred.Str()
			}
		case "language":
			p.Language = pred.Str()
		case "tag":
			p.Tag = pred.Str()
		case "favorite":
			v := pred.Bool()
			p.Favorite = &v
		case "synced":
			v := pred.Bool()
			p.Synced = &v
		case "difficulty":
			n, err := pred.Int()
			if err != nil {
				return nil, fmt.Errorf("filter: %w", err)
			}
			if pred.Op == filterexpr.Gte {
				p.MinDifficulty = &n
			} else {
				p.MaxDifficulty = &n
			}
		}
	}

	p.Order, err = filterexpr.ParseOrder(query.GetOrderBy(), wordOrder)
	if err != nil {
		return nil, fmt.Errorf("order_by: %w", err)
	}
	return p, nil
}
