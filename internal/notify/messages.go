package notify

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/pkg/errors"

	"github.com/soaringjerry/modern360/internal/services"
)

//go:embed templates/*.tmpl
var templateFiles embed.FS

var (
	htmlBody = htmltemplate.Must(htmltemplate.ParseFS(templateFiles, "templates/email.html.tmpl"))
	textBody = texttemplate.Must(texttemplate.ParseFS(templateFiles, "templates/email.txt.tmpl"))
)

// kindCopy is the localized wording of one message kind.
type kindCopy struct {
	Subject            string // placeholders: {title} {name} {as}
	Heading            string
	Intro              string
	DefaultDescription string
	Button             string
	Platform           string
	CompanyLabel       string
	RoleLabel          string
	TimeLabel          string
	TimeValue          string
	LinkHint           string
	Footer             string
}

type localeCopy struct {
	common         kindCopy
	kinds          map[services.MessageKind]kindCopy
	asAssessor     string
	asRelationship string
	assessorRole   string
	selfRole       string
}

var copies = map[string]localeCopy{
	"en": {
		common: kindCopy{
			Platform:     "Assessment Platform",
			CompanyLabel: "Company",
			RoleLabel:    "Your Role",
			TimeLabel:    "Time Required",
			TimeValue:    "Approximately 10-15 minutes",
			LinkHint:     "If the button doesn't work, copy and paste this link into your browser:",
			Footer:       "This is an automated email from Modern360 Assessment Platform.",
		},
		kinds: map[services.MessageKind]kindCopy{
			services.MessageSelf: {
				Subject:            "Complete Your Self-Assessment - {title}",
				Heading:            "Self-Assessment Invitation",
				Intro:              "You have been invited to complete your self-assessment for:",
				DefaultDescription: "Please complete this self-assessment to evaluate your own performance and professional development.",
				Button:             "Complete Self-Assessment",
			},
			services.MessageAssessor: {
				Subject:            "Assess {name} - {title}",
				Heading:            "Assessment Invitation",
				Intro:              "You have been invited to assess {name} {as} in the following assessment:",
				DefaultDescription: "Please complete this assessment to provide valuable feedback on the selected individual's performance.",
				Button:             "Start Assessment",
			},
			services.MessageInvitation: {
				Subject:            "Assessment Invitation - {title}",
				Heading:            "Assessment Invitation",
				Intro:              "You have been invited to complete the assessment:",
				DefaultDescription: "Please complete this assessment.",
				Button:             "Start Assessment",
			},
			services.MessageReminder: {
				Subject:            "Reminder: Assessment Invitation - {title}",
				Heading:            "Assessment Reminder",
				Intro:              "This is a reminder that you have been invited to complete the assessment:",
				DefaultDescription: "Please complete this assessment as soon as possible.",
				Button:             "Complete Assessment Now",
			},
		},
		asAssessor:     "as an assessor",
		asRelationship: "as their %s",
		assessorRole:   "Assessor",
		selfRole:       "Evaluate your own performance",
	},
	"bs": {
		common: kindCopy{
			Platform:     "Platforma za procjenu",
			CompanyLabel: "Kompanija",
			RoleLabel:    "Vaša uloga",
			TimeLabel:    "Potrebno vrijeme",
			TimeValue:    "Otprilike 10-15 minuta",
			LinkHint:     "Ako dugme ne radi, kopirajte i zalijepite ovaj link u preglednik:",
			Footer:       "Ovo je automatska poruka platforme Modern360.",
		},
		kinds: map[services.MessageKind]kindCopy{
			services.MessageSelf: {
				Subject:            "Završite svoju samoprocjenu - {title}",
				Heading:            "Poziv na samoprocjenu",
				Intro:              "Pozvani ste da završite svoju samoprocjenu za:",
				DefaultDescription: "Molimo završite ovu samoprocjenu kako biste ocijenili vlastiti učinak i profesionalni razvoj.",
				Button:             "Završi samoprocjenu",
			},
			services.MessageAssessor: {
				Subject:            "Procijenite osobu {name} - {title}",
				Heading:            "Poziv na procjenu",
				Intro:              "Pozvani ste da procijenite osobu {name} {as} u sljedećoj procjeni:",
				DefaultDescription: "Molimo završite ovu procjenu i pružite povratnu informaciju o radu odabrane osobe.",
				Button:             "Započni procjenu",
			},
			services.MessageInvitation: {
				Subject:            "Poziv na procjenu - {title}",
				Heading:            "Poziv na procjenu",
				Intro:              "Pozvani ste da završite procjenu:",
				DefaultDescription: "Molimo završite ovu procjenu.",
				Button:             "Započni procjenu",
			},
			services.MessageReminder: {
				Subject:            "Podsjetnik: Poziv na procjenu - {title}",
				Heading:            "Podsjetnik za procjenu",
				Intro:              "Podsjećamo vas da ste pozvani da završite procjenu:",
				DefaultDescription: "Molimo završite ovu procjenu što prije.",
				Button:             "Završi procjenu sada",
			},
		},
		asAssessor:     "kao procjenitelj",
		asRelationship: "u ulozi: %s",
		assessorRole:   "Procjenitelj",
		selfRole:       "Ocijenite vlastiti učinak",
	},
}

// Email is a rendered message ready for delivery.
type Email struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

type bodyData struct {
	Copy        kindCopy
	Intro       string
	Title       string
	Company     string
	Description string
	URL         string
	Role        string
	Accent      string
}

// Composer renders InvitationMessages in one locale with links into the
// respondent application at baseURL.
type Composer struct {
	locale  string
	baseURL string
}

func NewComposer(locale, baseURL string) *Composer {
	if _, ok := copies[locale]; !ok {
		locale = "en"
	}
	return &Composer{locale: locale, baseURL: strings.TrimRight(baseURL, "/")}
}

// RespondURL is the link a recipient follows to answer.
func (c *Composer) RespondURL(token string) string {
	return c.baseURL + "/respond/" + token
}

func (c *Composer) Compose(msg services.InvitationMessage) (*Email, error) {
	lc := copies[c.locale]
	kc, ok := lc.kinds[msg.Kind]
	if !ok {
		return nil, errors.Errorf("unknown message kind %q", msg.Kind)
	}
	merged := lc.common
	merged.Heading, merged.Button = kc.Heading, kc.Button

	name := msg.AssesseeName
	var role string
	switch msg.Kind {
	case services.MessageSelf:
		role = lc.selfRole
	case services.MessageAssessor:
		role = lc.assessorRole
		if msg.Relationship != "" {
			role = msg.Relationship
		}
	}
	as := lc.asAssessor
	if msg.Relationship != "" {
		as = fmt.Sprintf(lc.asRelationship, msg.Relationship)
	}
	company := msg.CompanyName
	if company == "" {
		company = "N/A"
	}
	description := msg.AssessmentDescription
	if description == "" {
		description = kc.DefaultDescription
	}
	accent := "#1976d2"
	switch msg.Kind {
	case services.MessageSelf:
		accent = "#4caf50"
	case services.MessageAssessor:
		accent = "#ff9800"
	case services.MessageReminder:
		accent = "#f44336"
	}

	fill := strings.NewReplacer("{title}", msg.AssessmentTitle, "{name}", name, "{as}", as)
	data := bodyData{
		Copy:        merged,
		Intro:       fill.Replace(kc.Intro),
		Title:       msg.AssessmentTitle,
		Company:     company,
		Description: description,
		URL:         c.RespondURL(msg.Token),
		Role:        role,
		Accent:      accent,
	}
	var html, text bytes.Buffer
	if err := htmlBody.Execute(&html, data); err != nil {
		return nil, errors.Wrap(err, "render html body")
	}
	if err := textBody.Execute(&text, data); err != nil {
		return nil, errors.Wrap(err, "render text body")
	}
	return &Email{
		To:      msg.Email,
		Subject: fill.Replace(kc.Subject),
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}
