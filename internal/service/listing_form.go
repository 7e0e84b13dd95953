package service

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"vilatur/internal/keyword"
	"vilatur/internal/model"
)

const (
	minTitleLength   = 3
	minContentLength = 10
	maxHoursLength   = 20
)

// Validation messages, one per rule. A field reports only its first failing rule.
const (
	msgInvalidID         = "Identificador inválido"
	msgTitleRequired     = "Título é obrigatório"
	msgTitleTooShort     = "Título precisa ter pelo menos 3 caracteres"
	msgContentRequired   = "Descrição é obrigatória"
	msgContentTooShort   = "Descrição precisa ter pelo menos 10 caracteres"
	msgSiteRequired      = "Site é obrigatório"
	msgSiteInvalid       = "Site precisa ser uma URL válida (http ou https)"
	msgPhoneRequired     = "Telefone é obrigatório"
	msgPhoneInvalid      = "Telefone precisa ter 10 ou 11 dígitos com DDD"
	msgCoordRequired     = "Coordenada é obrigatória"
	msgCoordNegative     = "Coordenada precisa começar com -"
	msgCoordNotNumber    = "Coordenada precisa ser um número decimal"
	msgHoursTooLong      = "Horário muito longo"
	msgKeywordsTooLong   = "Palavras-chave muito longas"
	maxKeywordsRawLength = 1000
)

// ParseListingForm validates a note-editor submission and transforms it into
// storable fields. id is 0 when the form creates a new listing.
// Every failing field is reported in a single *model.ValidationError.
func ParseListingForm(form model.ListingForm) (int64, model.ListingFields, error) {
	verr := &model.ValidationError{}

	var id int64
	if raw := strings.TrimSpace(form.ID); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			verr.Add("id", msgInvalidID)
		}
		id = parsed
	}

	title := strings.TrimSpace(form.Title)
	switch {
	case title == "":
		verr.Add("title", msgTitleRequired)
	case utf8.RuneCountInString(title) < minTitleLength:
		verr.Add("title", msgTitleTooShort)
	}

	content := strings.TrimSpace(form.Content)
	switch {
	case content == "":
		verr.Add("content", msgContentRequired)
	case utf8.RuneCountInString(content) < minContentLength:
		verr.Add("content", msgContentTooShort)
	}

	site := strings.TrimSpace(form.Site)
	switch {
	case site == "":
		verr.Add("site", msgSiteRequired)
	case !isHTTPURL(site):
		verr.Add("site", msgSiteInvalid)
	}

	phone := digitsOnly(form.Phone)
	switch {
	case strings.TrimSpace(form.Phone) == "":
		verr.Add("phone", msgPhoneRequired)
	case len(phone) < 10 || len(phone) > 11:
		verr.Add("phone", msgPhoneInvalid)
	}

	latitude := strings.TrimSpace(form.Latitude)
	if msg := checkCoordinate(latitude); msg != "" {
		verr.Add("latitude", msg)
	}
	longitude := strings.TrimSpace(form.Longitude)
	if msg := checkCoordinate(longitude); msg != "" {
		verr.Add("longitude", msg)
	}

	open := strings.TrimSpace(form.Open)
	if utf8.RuneCountInString(open) > maxHoursLength {
		verr.Add("open", msgHoursTooLong)
	}
	closing := strings.TrimSpace(form.Close)
	if utf8.RuneCountInString(closing) > maxHoursLength {
		verr.Add("close", msgHoursTooLong)
	}

	if len(form.Keywords) > maxKeywordsRawLength {
		verr.Add("keywords", msgKeywordsTooLong)
	}

	if verr.HasErrors() {
		return 0, model.ListingFields{}, verr
	}

	return id, model.ListingFields{
		Title:     title,
		Content:   content,
		Phone:     phone,
		Site:      site,
		Open:      open,
		Close:     closing,
		Delivery:  DeliveryFlag(form.Delivery),
		Latitude:  latitude,
		Longitude: longitude,
		Keywords:  keyword.Normalize(form.Keywords),
	}, nil
}

// DeliveryFlag maps the checkbox value "on" to "Sim" and anything else to "Não".
func DeliveryFlag(checkbox string) string {
	if checkbox == "on" {
		return model.DeliveryYes
	}
	return model.DeliveryNo
}

func isHTTPURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// coordinatePattern accepts plain negative decimals only, so forms such as
// "-Inf", "-NaN", "-1e3" or "-0x1p4" that strconv would parse are rejected.
var coordinatePattern = regexp.MustCompile(`^-[0-9]+(\.[0-9]+)?$`)

// checkCoordinate returns the message for an invalid coordinate, or "".
// The directory only covers the southern and western hemispheres.
func checkCoordinate(v string) string {
	switch {
	case v == "":
		return msgCoordRequired
	case !strings.HasPrefix(v, "-"):
		return msgCoordNegative
	}
	if !coordinatePattern.MatchString(v) {
		return msgCoordNotNumber
	}
	return ""
}
