package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
)

// MinQuestionColumns is the number of question columns every CSV export
// carries, even for shorter questionnaires.
const MinQuestionColumns = 39

var exportHeader = []string{
	"Assessment ID", "Company ID", "Company Name", "Industry",
	"Participant ID", "Assessee Name", "Participant Name", "Email", "Participant Role",
}

// ExportRow is one response flattened for the CSV export. Answers[i] holds
// the answer to the question at order i.
type ExportRow struct {
	AssessmentID    int64
	CompanyID       string
	CompanyName     string
	Industry        string
	ParticipantID   string
	AssesseeName    string
	ParticipantName string
	Email           string
	Role            string
	Answers         []string
}

// ExportResponsesCSV renders rows with numbered question columns 1..columns.
func ExportResponsesCSV(rows []ExportRow, columns int) ([]byte, error) {
	if columns < MinQuestionColumns {
		columns = MinQuestionColumns
	}
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	header := make([]string, 0, len(exportHeader)+columns)
	header = append(header, exportHeader...)
	for i := 1; i <= columns; i++ {
		header = append(header, strconv.Itoa(i))
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, r := range rows {
		rec := make([]string, 0, len(header))
		rec = append(rec,
			strconv.FormatInt(r.AssessmentID, 10),
			r.CompanyID, r.CompanyName, r.Industry,
			r.ParticipantID, r.AssesseeName, r.ParticipantName, r.Email, r.Role,
		)
		for i := 0; i < columns; i++ {
			if i < len(r.Answers) {
				rec = append(rec, r.Answers[i])
			} else {
				rec = append(rec, "")
			}
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ReportHeader holds the summary lines of a detailed report.
type ReportHeader struct {
	AssessmentID int64
	Title        string
	Description  string
	Creator      string
	CreatedAt    string
	Active       bool
	Completion   Completion
}

// RenderDetailedReport writes the plain-text report grouped by question group.
func RenderDetailedReport(h ReportHeader, groups []ReportGroup) []byte {
	var b strings.Builder
	b.WriteString("ASSESSMENT DETAILED REPORT\n")
	b.WriteString(strings.Repeat("=", 50) + "\n\n")
	fmt.Fprintf(&b, "Assessment ID: %d\n", h.AssessmentID)
	fmt.Fprintf(&b, "Title: %s\n", h.Title)
	desc := h.Description
	if desc == "" {
		desc = "No description"
	}
	fmt.Fprintf(&b, "Description: %s\n", desc)
	fmt.Fprintf(&b, "Creator: %s\n", h.Creator)
	fmt.Fprintf(&b, "Created: %s\n", h.CreatedAt)
	status := "Inactive"
	if h.Active {
		status = "Active"
	}
	fmt.Fprintf(&b, "Status: %s\n", status)
	fmt.Fprintf(&b, "Total Participants: %d\n", h.Completion.Total)
	fmt.Fprintf(&b, "Completed Responses: %d\n", h.Completion.Completed)
	fmt.Fprintf(&b, "Completion Rate: %.1f%%\n\n", h.Completion.Rate)

	for _, g := range groups {
		fmt.Fprintf(&b, "QUESTION GROUP: %s\n", strings.ToUpper(g.Name))
		b.WriteString(strings.Repeat("-", 40) + "\n\n")
		for _, q := range g.Questions {
			fmt.Fprintf(&b, "Question %d: %s\n", q.Order+1, q.Text)
			fmt.Fprintf(&b, "Type: %s\n", q.Type)
			b.WriteString("Responses:\n")
			for _, a := range q.Answers {
				answer := a.Answer
				if answer == "" {
					answer = "No response"
				}
				fmt.Fprintf(&b, "  - %s: %s\n", a.Respondent, answer)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return []byte(b.String())
}

// ExportFilename builds assessment_{id}_{title}_{assessees}_{suffix}.
func ExportFilename(id int64, title string, assessees []string, suffix string) string {
	safe := strings.NewReplacer(" ", "_", "/", "_", `\`, "_").Replace(title)
	part := "NoAssessee"
	if len(assessees) > 0 {
		part = strings.Join(assessees, "_")
	}
	return fmt.Sprintf("assessment_%d_%s_%s_%s", id, safe, part, suffix)
}
