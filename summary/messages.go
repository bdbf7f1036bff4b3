package summary

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	msgSelectInterval = "select an interval for summary info"
	msgNoData         = "no data"
	msgIntervals      = "%d intervals"
	msgNoSession      = "no session loaded"
)

func init() {
	for _, entry := range []struct {
		tag       language.Tag
		key, text string
	}{
		{language.German, msgSelectInterval, "Intervall für Zusammenfassung auswählen"},
		{language.German, msgNoData, "keine Daten"},
		{language.German, msgIntervals, "%d Intervalle"},
		{language.German, msgNoSession, "keine Einheit geladen"},
		{language.French, msgSelectInterval, "sélectionnez un intervalle pour le résumé"},
		{language.French, msgNoData, "aucune donnée"},
		{language.French, msgIntervals, "%d intervalles"},
		{language.French, msgNoSession, "aucune séance chargée"},
	} {
		_ = message.SetString(entry.tag, entry.key, entry.text)
	}
}

// Printer returns a message printer for tag, falling back to English.
func Printer(tag language.Tag) *message.Printer {
	if tag == language.Und {
		tag = language.English
	}
	return message.NewPrinter(tag)
}
