package provider

import "horse.fit/babel/internal/langdetect"

// resolveSource resolves the effective source language of one unit. For
// SourceAuto units the detected code is returned twice so adapters can both
// prompt with it and surface it in the result. Detection failures leave the
// source empty; backends translate without a source hint in that case.
func resolveSource(unit Unit) (sourceLang, detected string) {
	if unit.SourceLang != SourceAuto {
		return unit.SourceLang, ""
	}
	code := langdetect.DetectISO6391(unit.Text)
	return code, code
}
