package ai

import (
	"fmt"
	"strings"
	"time"
)

const articleSystemPrompt = `Eres "AIFeed", un periodista especializado en Inteligencia Artificial. Escribes artículos informativos en español, con tono profesional pero accesible, detalles técnicos específicos y foco en tendencias y desarrollos significativos. No mencionas fechas específicas muy recientes.`

const articleUserPromptTmpl = `TEMA A INVESTIGAR: "%s"

Crea un artículo informativo sobre desarrollos y tendencias actuales en este tema.

ESTRUCTURA REQUERIDA:
- Título llamativo (8-12 palabras)
- Intro enganchadora (20-30 palabras)
- Desarrollo principal explicando el tema (80-120 palabras)
- Conclusión o implicación futura (15-25 palabras)

REQUISITOS:
- TOTAL: 120-180 palabras exactamente
- Tono profesional pero accesible
- Incluye detalles técnicos específicos
- Enfócate en tendencias y desarrollos significativos
- NO menciones fechas específicas muy recientes
%s
Devuelve ÚNICAMENTE un JSON válido:
{
  "title": "Título atractivo de 8-12 palabras",
  "content": "Artículo completo de 120-180 palabras",
  "category": "IA Avanzada, Prompt Engineering, Coding con IA, o Herramientas IA",
  "source": "AIFeed Bot",
  "topic": "%s",
  "relevance_score": número_del_1_al_10,
  "word_count": número_total_de_palabras,
  "generated_at": "%s"
}`

const freeTextUserPromptTmpl = `Escribe en español un artículo informativo de 120 a 180 palabras sobre "%s", con tono profesional pero accesible y detalles técnicos concretos. Escribe solo el cuerpo del artículo, sin título ni encabezados.
%s`

// Categories the article prompt asks the model to choose from.
var Categories = []string{
	"IA Avanzada",
	"Prompt Engineering",
	"Coding con IA",
	"Herramientas IA",
}

// ArticlePrompt builds the prompt for providers that can return a JSON
// object. Headlines, when present, are offered as context.
func ArticlePrompt(topic string, headlines []string, now time.Time) Prompt {
	return Prompt{
		System: articleSystemPrompt,
		User: fmt.Sprintf(articleUserPromptTmpl,
			topic, headlinesBlock(headlines), topic, now.UTC().Format(time.RFC3339)),
	}
}

// FreeTextPrompt builds the prompt for providers that only produce prose.
func FreeTextPrompt(topic string, headlines []string) Prompt {
	return Prompt{
		System: articleSystemPrompt,
		User:   fmt.Sprintf(freeTextUserPromptTmpl, topic, headlinesBlock(headlines)),
	}
}

// PromptFor picks the prompt shape that matches the provider.
func PromptFor(d Descriptor, topic string, headlines []string, now time.Time) Prompt {
	if d.FreeText {
		return FreeTextPrompt(topic, headlines)
	}
	return ArticlePrompt(topic, headlines, now)
}

func headlinesBlock(headlines []string) string {
	if len(headlines) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\nCONTEXTO (titulares recientes, úsalos solo como referencia):\n")
	for _, h := range headlines {
		fmt.Fprintf(&b, "- %s\n", h)
	}
	return b.String()
}
