package export

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Narrator voices.
const (
	NarratorFemale = "female"
	NarratorMale   = "male"
)

// Course languages with a dedicated narrator voice.
const (
	LanguageGerman  = "de"
	LanguageEnglish = "en"
)

// Options controls what goes into an export.
type Options struct {
	AddTitlePage        bool   `yaml:"add_title_page" json:"addTitlePage"`
	Language            string `yaml:"language" json:"language"`
	Narrator            string `yaml:"narrator" json:"narrator"`
	ConsiderTopics      bool   `yaml:"consider_topics" json:"considerTopics"`
	ExportMailAddresses bool   `yaml:"export_mail_addresses" json:"exportMailAddresses"`
	// StoragesToInclude are URL prefixes of media servers whose files are
	// copied into the export.
	StoragesToInclude []string `yaml:"storages_to_include" json:"storagesToInclude"`
	// StorageDestination is the path prefix copied files get inside the
	// export. Empty means "media/<course slug>/".
	StorageDestination string `yaml:"storage_destination" json:"storageDestination"`
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		AddTitlePage:        true,
		Language:            LanguageGerman,
		Narrator:            NarratorFemale,
		ConsiderTopics:      true,
		ExportMailAddresses: true,
	}
}

// Validate validates the export options.
func (o *Options) Validate() error {
	return validation.ValidateStruct(o,
		validation.Field(&o.Language, validation.Length(2, 5)),
		validation.Field(&o.Narrator, validation.In(NarratorFemale, NarratorMale)),
		validation.Field(&o.StoragesToInclude, validation.Each(validation.Required)),
	)
}

// SelectNarrator picks the LiaScript text-to-speech voice. Unknown languages
// fall back to the German female voice.
func SelectNarrator(language, narrator string) string {
	switch language {
	case LanguageGerman:
		if narrator == NarratorMale {
			return "Deutsch Male"
		}
		return "Deutsch Female"
	case LanguageEnglish:
		if narrator == NarratorMale {
			return "US English Male"
		}
		return "US English Female"
	default:
		return "Deutsch Female"
	}
}

// dateLayout formats the meta date the way readers of language expect.
func dateLayout(language string) string {
	switch language {
	case LanguageGerman:
		return "2.1.2006"
	case LanguageEnglish:
		return "1/2/2006"
	default:
		return "2006-01-02"
	}
}
