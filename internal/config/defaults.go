package config

const (
	defaultConfigPath       = "~/.config/maskpack/config.toml"
	projectConfigName       = "maskpack.toml"
	defaultLogDir           = "~/.local/share/maskpack/logs"
	defaultHistoryDB        = "~/.local/share/maskpack/history.db"
	defaultLogRetentionDays = 60
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultGrade            = "MS"
	defaultTemplateDir      = "secret"
	defaultChecklistBase    = "LR_Checklist"

	defaultMaskNamePattern  = `[A-Za-z]{2,4}[0-9]{3,5}[A-Za-z]?$`
	defaultRevisionPattern  = `(?i)rev[0-9]{2}$`
	defaultDataprepPattern  = `(?i)dataprep$`
	defaultFinalMaskPattern = `[A-Za-z]{2,4}[0-9]{3,5}[A-Za-z]?_[A-Za-z]{2,3}_[0-9]{2}[A-Za-z]{3}[0-9]{2}`

	// SiteEnv selects a [patterns.sites.<name>] override when site is unset.
	SiteEnv = "MASKPACK_SITE"
)

var (
	defaultArchiveExtensions = []string{".tar.gz", ".tgz", ".tar"}
	defaultChecklistItems    = []string{
		"Job deck reviewed",
		"Pattern files verified",
		"Layer table matches order form",
		"Barcode and titles checked",
		"Review archive inspected",
	}
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:    defaultLogDir,
			HistoryDB: defaultHistoryDB,
		},
		Patterns: Patterns{
			MaskName:  defaultMaskNamePattern,
			Revision:  defaultRevisionPattern,
			Dataprep:  defaultDataprepPattern,
			FinalMask: defaultFinalMaskPattern,
		},
		Ledger: Ledger{
			Durable: true,
		},
		Archive: Archive{
			Extensions: append([]string(nil), defaultArchiveExtensions...),
		},
		FinalMask: FinalMask{
			Grade:       defaultGrade,
			TemplateDir: defaultTemplateDir,
		},
		Checklist: Checklist{
			BaseName: defaultChecklistBase,
			Items:    append([]string(nil), defaultChecklistItems...),
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
