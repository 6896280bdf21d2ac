package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/soaringjerry/modern360/internal/models"
)

type TemplateStore interface {
	Transactor
	ListTemplateQuestions(ctx context.Context, language string) ([]*TemplateQuestion, error)
	InsertTemplateQuestion(ctx context.Context, q *TemplateQuestion) (int64, error)
	UpdateTemplateOrder(ctx context.Context, id int64, position int) error
}

// TemplateService manages the reusable question pool.
type TemplateService struct {
	store           TemplateStore
	defaultLanguage string
}

func NewTemplateService(store TemplateStore, defaultLanguage string) *TemplateService {
	if defaultLanguage == "" {
		defaultLanguage = "bs"
	}
	return &TemplateService{store: store, defaultLanguage: defaultLanguage}
}

func (s *TemplateService) language(lang string) string {
	if l := strings.TrimSpace(lang); l != "" {
		return l
	}
	return s.defaultLanguage
}

func (s *TemplateService) List(ctx context.Context, language string) ([]*TemplateQuestion, error) {
	qs, err := s.store.ListTemplateQuestions(ctx, s.language(language))
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	sortTemplates(qs)
	return qs, nil
}

// ImportCSV appends rows of text,group,type[,language[,options]] to the pool.
// A first row whose first cell reads "text" is treated as a header. Rows
// without a language take the fallback language; positions continue after
// the highest existing position of each language.
func (s *TemplateService) ImportCSV(ctx context.Context, r io.Reader, language string) (int, error) {
	fallback := s.language(language)
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var parsed []*TemplateQuestion
	line := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return 0, NewInvalidError(fmt.Sprintf("line %d: %v", line, err))
		}
		if line == 1 && len(rec) > 0 && strings.EqualFold(strings.TrimSpace(rec[0]), "text") {
			continue
		}
		q, err := parseTemplateRecord(rec, fallback)
		if err != nil {
			return 0, NewInvalidError(fmt.Sprintf("line %d: %v", line, err))
		}
		parsed = append(parsed, q)
	}
	if len(parsed) == 0 {
		return 0, NewInvalidError("no questions found")
	}

	next := map[string]int{}
	err := s.store.InTx(ctx, func(ctx context.Context) error {
		for _, q := range parsed {
			pos, ok := next[q.Language]
			if !ok {
				existing, err := s.store.ListTemplateQuestions(ctx, q.Language)
				if err != nil {
					return err
				}
				for _, e := range existing {
					if e.Position >= pos {
						pos = e.Position + 1
					}
				}
			}
			q.Position = pos
			next[q.Language] = pos + 1
			id, err := s.store.InsertTemplateQuestion(ctx, q)
			if err != nil {
				return err
			}
			q.ID = id
		}
		return nil
	})
	if err != nil {
		return 0, NewPersistenceError(err)
	}
	slog.Info("template questions imported", "count", len(parsed))
	return len(parsed), nil
}

func parseTemplateRecord(rec []string, fallback string) (*TemplateQuestion, error) {
	cell := func(i int) string {
		if i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}
	q := &TemplateQuestion{
		Text:     cell(0),
		Group:    cell(1),
		Type:     models.QuestionType(cell(2)),
		Language: cell(3),
		Options:  cell(4),
	}
	if q.Text == "" {
		return nil, errors.New("question text is required")
	}
	if q.Group == "" {
		q.Group = models.DefaultGroup
	}
	if q.Type == "" {
		q.Type = models.QuestionRating
	}
	if !q.Type.Valid() {
		return nil, fmt.Errorf("unknown question type %q", q.Type)
	}
	if q.Language == "" {
		q.Language = fallback
	}
	return q, nil
}

// Reorder rewrites the positions of one language's pool to 0..n-1, keeping
// the current relative order. It returns how many questions moved.
func (s *TemplateService) Reorder(ctx context.Context, language string) (int, error) {
	lang := s.language(language)
	moved := 0
	err := s.store.InTx(ctx, func(ctx context.Context) error {
		qs, err := s.store.ListTemplateQuestions(ctx, lang)
		if err != nil {
			return err
		}
		sortTemplates(qs)
		for i, q := range qs {
			if q.Position == i {
				continue
			}
			if err := s.store.UpdateTemplateOrder(ctx, q.ID, i); err != nil {
				return err
			}
			q.Position = i
			moved++
		}
		return nil
	})
	if err != nil {
		return 0, NewPersistenceError(err)
	}
	return moved, nil
}

func sortTemplates(qs []*TemplateQuestion) {
	sort.SliceStable(qs, func(i, j int) bool {
		if qs[i].Position != qs[j].Position {
			return qs[i].Position < qs[j].Position
		}
		return qs[i].ID < qs[j].ID
	})
}
