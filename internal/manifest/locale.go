package manifest

// lcidTags maps Windows language identifiers to BCP 47 tags for the
// locales that show up in installer language tables. Unknown LCIDs
// resolve to the empty string and the record is emitted without a locale.
var lcidTags = map[uint16]string{
	0x0401: "ar-SA",
	0x0404: "zh-TW",
	0x0405: "cs-CZ",
	0x0406: "da-DK",
	0x0407: "de-DE",
	0x0408: "el-GR",
	0x0409: "en-US",
	0x040A: "es-ES",
	0x040B: "fi-FI",
	0x040C: "fr-FR",
	0x040D: "he-IL",
	0x040E: "hu-HU",
	0x0410: "it-IT",
	0x0411: "ja-JP",
	0x0412: "ko-KR",
	0x0413: "nl-NL",
	0x0414: "nb-NO",
	0x0415: "pl-PL",
	0x0416: "pt-BR",
	0x0418: "ro-RO",
	0x0419: "ru-RU",
	0x041B: "sk-SK",
	0x041D: "sv-SE",
	0x041F: "tr-TR",
	0x0422: "uk-UA",
	0x0804: "zh-CN",
	0x0809: "en-GB",
	0x0816: "pt-PT",
	0x0C0A: "es-ES",
}

// LocaleFromLCID resolves a Windows LCID to a BCP 47 language tag
func LocaleFromLCID(lcid uint16) string {
	return lcidTags[lcid]
}
