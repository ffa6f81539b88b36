package caption

import (
	"context"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type template struct {
	tag      language.Tag
	intro    string
	fallback string
	closing  string
	hashtags []string
}

var templates = map[string]template{
	"fr": {
		tag:      language.French,
		intro:    "Découvrez notre",
		fallback: "plat du jour",
		closing:  "Préparé avec soin, à savourer dès aujourd'hui. Réservez votre table !",
		hashtags: []string{"food", "restaurant", "faitmaison", "gastronomie", "bonappetit"},
	},
	"en": {
		tag:      language.English,
		intro:    "Meet our",
		fallback: "dish of the day",
		closing:  "Made with care and ready for you today. Book your table now!",
		hashtags: []string{"food", "restaurant", "homemade", "foodie", "delicious"},
	},
}

// Static builds captions from fixed templates. It never calls out and is
// the default when no text model is configured.
type Static struct{}

// NewStatic returns the template captioner.
func NewStatic() *Static { return &Static{} }

func (Static) Caption(ctx context.Context, req Request) (*Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tpl, ok := templates[req.Locale]
	if !ok {
		tpl = templates["en"]
	}

	subject := strings.Join(strings.Fields(req.Description), " ")
	if subject == "" {
		subject = tpl.fallback
	}
	lower := cases.Lower(tpl.tag).String(subject)
	title := cases.Title(tpl.tag).String(subject)

	tags := append([]string{}, tpl.hashtags...)
	for _, w := range strings.Fields(lower) {
		if len([]rune(w)) > 3 {
			tags = append(tags, w)
		}
	}
	return &Post{
		Caption:  "✨ " + title + " ✨\n" + tpl.intro + " " + lower + ". " + tpl.closing,
		Hashtags: normalizeHashtags(tags),
	}, nil
}

var _ Captioner = Static{}
