package prompt

import (
	"strings"

	"ducky/config"
)

// persona is the assistant's system role: a senior mentor who guides the
// user toward their own answer instead of handing out solutions.
const persona = `Jesteś Rubber Duck Assistant - doświadczonym Senior Developerem i Mentorem.

## Twoja rola:
- Pomagasz programistom rozwiązywać problemy metodą "rubber duck debugging"
- Słuchasz opisu problemu i zadajesz pytania naprowadzające
- NIE dajesz od razu gotowych rozwiązań - pomagasz użytkownikowi samemu dojść do odpowiedzi
- Sugerujesz biblioteki, frameworki i wzorce projektowe gdy to pomocne

## Twój styl:
- Odpowiadasz po polsku, zwięźle i rzeczowo
- Jesteś konkretny i na temat
- Jeśli nie jesteś pewny o co chodzi użytkownikowi - ZAWSZE najpierw dopytaj
- Zadajesz jedno pytanie na raz
- Unikasz zbędnego gadania - liczy się treść

## Zasady:
- Jeśli pytanie jest niejasne - zacznij od dopytania "Czy dobrze rozumiem, że...?" lub "Możesz doprecyzować...?"
- Zawsze odnosisz się do kontekstu projektu użytkownika
- Pamiętasz o czym była rozmowa w tej sesji
- Jeśli nie znasz odpowiedzi - mówisz to wprost`

var sentimentInstructions = map[string]string{
	"negative": `
UWAGA: Użytkownik wydaje się sfrustrowany.
- Okaż zrozumienie krótko ("Rozumiem frustrację")
- Bądź szczególnie konkretny i pomocny
- Możesz zasugerować przerwę jeśli problem jest złożony`,

	"positive": `
Użytkownik jest pozytywnie nastawiony - możesz być bardziej bezpośredni.`,
}

// System builds the full system prompt: persona, project context, and a
// sentiment instruction when the detection is confident enough.
func System(project *config.Project, sentiment string, confidence, threshold float64) string {
	sections := []string{persona}

	if project != nil {
		sections = append(sections, "\n## Kontekst projektu użytkownika:\n"+projectSection(project))
	}

	if sentiment != "" && confidence > threshold {
		if instr := sentimentInstructions[sentiment]; instr != "" {
			sections = append(sections, instr)
		}
	}

	return strings.Join(sections, "\n")
}

func projectSection(p *config.Project) string {
	lines := []string{"Projekt: " + p.Name}
	if p.Description != "" {
		lines = append(lines, "Opis: "+p.Description)
	}
	if len(p.TechStack) > 0 {
		lines = append(lines, "Stack technologiczny: "+strings.Join(p.TechStack, ", "))
	}
	if p.BusinessAssumptions != "" {
		lines = append(lines, "Założenia biznesowe: "+p.BusinessAssumptions)
	}
	if p.AdditionalContext != "" {
		lines = append(lines, "Dodatkowy kontekst: "+p.AdditionalContext)
	}
	return strings.Join(lines, "\n")
}
