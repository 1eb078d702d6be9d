package summarize

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/costanews/internal/logger"
	"github.com/deusflow/costanews/internal/metrics"
	"github.com/deusflow/costanews/internal/news"
)

type echoTranslator struct{ err error }

func (e echoTranslator) Translate(_ context.Context, text, _ string) (string, error) {
	if e.err != nil {
		return "", e.err
	}
	return text, nil
}

type upperTranslator struct{ seen []string }

func (u *upperTranslator) Translate(_ context.Context, text, _ string) (string, error) {
	u.seen = append(u.seen, text)
	return strings.ToUpper(text), nil
}

var alicante = news.Region{Name: "Alicante", Channel: "@ALCTODAY"}

func TestProcess_AlicanteExample(t *testing.T) {
	s := New(echoTranslator{}, DefaultOptions(), logger.Discard(), nil)
	item := news.RawItem{
		Title:       "Fiesta en Alicante",
		Link:        "https://x.es/1",
		Description: "<p>Gran evento. Habrá música. ¡No te lo pierdas!</p>",
		ImageURL:    "https://x.es/a.jpg",
		SourceName:  "Información",
	}

	post, ok := s.Process(context.Background(), item, alicante)
	require.True(t, ok)
	assert.Equal(t, news.ProcessedPost{
		Title:      "Fiesta en Alicante",
		Text:       "Gran evento. Habrá música. ¡No te lo pierdas.",
		Link:       "https://x.es/1",
		ImageURL:   "https://x.es/a.jpg",
		Hashtags:   []string{"#Alicante", "#Испания"},
		SourceName: "Información",
	}, post)
}

func TestProcess_TranslatorFailureKeepsSource(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	s := New(echoTranslator{err: errors.New("down")}, DefaultOptions(), logger.Discard(), m)

	post, ok := s.Process(context.Background(), news.RawItem{
		Title:       "Fiesta",
		Description: "Un texto suficientemente largo para publicar",
	}, alicante)
	require.True(t, ok)
	assert.Equal(t, "Fiesta", post.Title)
	assert.Equal(t, "Un texto suficientemente largo para publicar.", post.Text)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Translations.WithLabelValues("fallback")))
}

func TestProcess_RejectsShortSummary(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	s := New(echoTranslator{}, DefaultOptions(), logger.Discard(), m)

	_, ok := s.Process(context.Background(), news.RawItem{
		Title:       "Un titular larguísimo que no cuenta para la longitud",
		Description: "<b>Corto.</b>",
	}, alicante)
	assert.False(t, ok)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Summaries.WithLabelValues("rejected")))
}

func TestProcess_TranslatesCleanedAndCappedText(t *testing.T) {
	tr := &upperTranslator{}
	opts := DefaultOptions()
	opts.MaxInputRunes = 10
	opts.MinRunes = 1
	s := New(tr, opts, logger.Discard(), nil)

	_, ok := s.Process(context.Background(), news.RawItem{
		Title:       "Título",
		Description: "<p>ñandú <i>grande</i> y rápido</p>",
	}, alicante)
	require.True(t, ok)
	assert.Equal(t, []string{"Título", "ñandú gran"}, tr.seen)
}

func TestCleanHTML(t *testing.T) {
	assert.Equal(t, "Hola mundo & más", CleanHTML("<div><p>Hola</p><p>mundo &amp; más</p></div>"))
	assert.Equal(t, "texto", CleanHTML("<script>var x=1</script> texto "))
	assert.Equal(t, "", CleanHTML(""))
	assert.Equal(t, "sin etiquetas", CleanHTML("sin   etiquetas"))
}

func TestShorten(t *testing.T) {
	assert.Equal(t, "Uno. Dos. Tres.", Shorten("Uno. Dos! Tres? Cuatro.", 3))
	assert.Equal(t, "Uno.", Shorten("Uno", 3))
	assert.Equal(t, "", Shorten("...", 3))
	assert.Equal(t, "Uno. Dos.", Shorten("  Uno ..  Dos  ", 5))
}

func TestHashtags(t *testing.T) {
	assert.Equal(t, []string{"#CostaBlanca", "#Испания"}, Hashtags(news.Region{Name: "Costa Blanca"}, "#Испания"))
	assert.Equal(t, []string{"#Валенсия"}, Hashtags(news.Region{Name: "Валенсия"}, ""))

	region := news.Region{Name: "Аликанте", Hashtags: []string{"#КостаБланка", "#Аликанте"}}
	tags := Hashtags(region, "#Испания")
	assert.Equal(t, []string{"#КостаБланка", "#Аликанте"}, tags)
	tags[0] = "#changed"
	assert.Equal(t, "#КостаБланка", region.Hashtags[0])
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "ñañ", Truncate("ñañaña", 3))
	assert.Equal(t, "abc", Truncate("abc", 0))
}
