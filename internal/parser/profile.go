package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/candidate-contact-scraper/internal/models"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var ErrEmptyDocument = errors.New("empty profile document")

type section int

const (
	sectionUnknown section = iota
	sectionSummary
	sectionCareer
	sectionEducation
	sectionCourses
	sectionLanguages
	sectionSkills
)

const headingSelector = "h2, h3, [data-section-title]"

// sectionKeywords are matched against accent-folded, lower-cased heading text.
var sectionKeywords = []struct {
	section  section
	keywords []string
}{
	{sectionCareer, []string{"experiencia", "historico profissional", "carreira"}},
	{sectionEducation, []string{"formacao", "escolaridade"}},
	{sectionCourses, []string{"cursos", "certificac"}},
	{sectionLanguages, []string{"idiomas", "linguas"}},
	{sectionSkills, []string{"habilidades", "competencias", "conhecimentos"}},
	{sectionSummary, []string{"resumo", "objetivo", "sobre"}},
}

type ProfileParser struct {
	agePattern    *regexp.Regexp
	salaryPattern *regexp.Regexp
	periodPattern *regexp.Regexp
	spacePattern  *regexp.Regexp
}

func NewProfileParser() *ProfileParser {
	return &ProfileParser{
		agePattern:    regexp.MustCompile(`(?i)\b(\d{2})\s+anos\b`),
		salaryPattern: regexp.MustCompile(`(?i)pretens[aã]o salarial\s*:?\s*(R\$\s*[\d.]+(?:,\d{2})?|a combinar)`),
		periodPattern: regexp.MustCompile(`(?i)((?:[a-zç]{3,9}\.?/)?\d{4})\s*(?:-|–|a|até)\s*((?:[a-zç]{3,9}\.?/)?\d{4}|atual|o momento|presente)`),
		spacePattern:  regexp.MustCompile(`\s+`),
	}
}

func (p *ProfileParser) Parse(html string) (*models.ProfileData, error) {
	if strings.TrimSpace(html) == "" {
		return nil, ErrEmptyDocument
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	profile := models.NewProfileData("")
	profile.Personal = p.extractPersonal(doc)

	doc.Find(headingSelector).Each(func(_ int, heading *goquery.Selection) {
		content := heading.NextUntil(headingSelector)

		switch classifyHeading(heading.Text()) {
		case sectionSummary:
			if profile.Personal.Summary == "" {
				profile.Personal.Summary = p.clean(content.Text())
			}
		case sectionCareer:
			profile.Career = append(profile.Career, p.extractCareer(content)...)
		case sectionEducation:
			profile.Education = append(profile.Education, p.extractEducation(content)...)
		case sectionCourses:
			profile.Courses = append(profile.Courses, p.extractList(content)...)
		case sectionLanguages:
			profile.Languages = append(profile.Languages, p.extractLanguages(content)...)
		case sectionSkills:
			profile.Skills = append(profile.Skills, p.extractList(content)...)
		}
	})

	return profile, nil
}

func (p *ProfileParser) extractPersonal(doc *goquery.Document) models.PersonalData {
	personal := models.PersonalData{
		Name:     p.firstText(doc.Selection, "[itemprop='name']", ".candidate-name", "h1"),
		Headline: p.firstText(doc.Selection, "[itemprop='jobTitle']", ".candidate-headline", ".headline"),
		Location: p.firstText(doc.Selection, "[itemprop='addressLocality']", ".candidate-location", ".location"),
		Salary:   p.firstText(doc.Selection, ".candidate-salary", ".salary"),
	}

	header := doc.Find("header, .candidate-info, .profile-header").First()
	if header.Length() == 0 {
		header = doc.Find("body")
	}

	ageText := p.firstText(doc.Selection, ".candidate-age", ".age")
	if ageText == "" {
		ageText = header.Text()
	}
	if m := p.agePattern.FindStringSubmatch(ageText); m != nil {
		if age, err := strconv.Atoi(m[1]); err == nil {
			personal.Age = age
		}
	}

	if personal.Salary == "" {
		if m := p.salaryPattern.FindStringSubmatch(doc.Text()); m != nil {
			personal.Salary = p.clean(m[1])
		}
	}

	return personal
}

func (p *ProfileParser) extractCareer(content *goquery.Selection) []models.CareerEntry {
	var entries []models.CareerEntry

	p.eachEntry(content, func(item *goquery.Selection) {
		entry := models.CareerEntry{
			Role:        p.firstText(item, ".role", ".cargo", "h4", "strong"),
			Company:     p.firstText(item, ".company", ".empresa"),
			Period:      p.firstText(item, ".period", ".periodo", "time"),
			Description: p.firstText(item, ".description", ".descricao", "p"),
		}
		if entry.Period == "" {
			entry.Period = p.findPeriod(item.Text())
		}
		if entry.Role == "" && entry.Company == "" {
			return
		}
		entries = append(entries, entry)
	})

	return entries
}

func (p *ProfileParser) extractEducation(content *goquery.Selection) []models.EducationItem {
	var items []models.EducationItem

	p.eachEntry(content, func(item *goquery.Selection) {
		edu := models.EducationItem{
			Course:      p.firstText(item, ".course", ".curso", "h4", "strong"),
			Institution: p.firstText(item, ".institution", ".instituicao", "span"),
			Period:      p.firstText(item, ".period", ".periodo", "time"),
		}
		if edu.Period == "" {
			edu.Period = p.findPeriod(item.Text())
		}
		if edu.Course == "" && edu.Institution == "" {
			return
		}
		items = append(items, edu)
	})

	return items
}

func (p *ProfileParser) extractLanguages(content *goquery.Selection) []models.Language {
	var languages []models.Language

	p.eachEntry(content, func(item *goquery.Selection) {
		lang := models.Language{
			Name:  p.firstText(item, ".name", ".idioma"),
			Level: p.firstText(item, ".level", ".nivel"),
		}
		if lang.Name == "" {
			lang.Name, lang.Level = splitLanguage(p.clean(item.Text()))
		}
		if lang.Name == "" {
			return
		}
		languages = append(languages, lang)
	})

	return languages
}

// extractList returns list item texts, or comma-separated fragments when the
// section is a plain paragraph.
func (p *ProfileParser) extractList(content *goquery.Selection) []string {
	var out []string

	items := content.Find("li").AddSelection(content.Filter("li"))
	if items.Length() > 0 {
		items.Each(func(_ int, li *goquery.Selection) {
			if text := p.clean(li.Text()); text != "" {
				out = append(out, text)
			}
		})
		return out
	}

	for _, part := range strings.Split(content.Text(), ",") {
		if text := p.clean(part); text != "" {
			out = append(out, text)
		}
	}
	return out
}

// eachEntry calls fn for every entry block of a section: list items when
// there are any, otherwise each element following the heading.
func (p *ProfileParser) eachEntry(content *goquery.Selection, fn func(*goquery.Selection)) {
	items := content.Find("li").AddSelection(content.Filter("li"))
	if items.Length() == 0 {
		items = content.Filter("div, article, p")
	}
	items.Each(func(_ int, item *goquery.Selection) {
		fn(item)
	})
}

func (p *ProfileParser) firstText(s *goquery.Selection, selectors ...string) string {
	for _, selector := range selectors {
		if text := p.clean(s.Find(selector).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

func (p *ProfileParser) findPeriod(text string) string {
	if m := p.periodPattern.FindString(text); m != "" {
		return p.clean(m)
	}
	return ""
}

func (p *ProfileParser) clean(s string) string {
	return strings.TrimSpace(p.spacePattern.ReplaceAllString(s, " "))
}

// splitLanguage splits "Inglês - Avançado" or "Espanhol (intermediário)".
func splitLanguage(text string) (name, level string) {
	for _, sep := range []string{" - ", " – ", ":", "("} {
		if i := strings.Index(text, sep); i > 0 {
			name = strings.TrimSpace(text[:i])
			level = strings.TrimSpace(strings.TrimSuffix(text[i+len(sep):], ")"))
			return name, level
		}
	}
	return strings.TrimSpace(text), ""
}

func classifyHeading(text string) section {
	folded := fold(text)
	for _, sk := range sectionKeywords {
		for _, kw := range sk.keywords {
			if strings.Contains(folded, kw) {
				return sk.section
			}
		}
	}
	return sectionUnknown
}

// fold lower-cases s and strips diacritics.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}
