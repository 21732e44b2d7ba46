// Package patterns holds the immutable, versioned signal catalogs the
// detectors match against: malicious-script regexes, keyword lists, the
// popular-package reference set, brand names, and the Unicode confusable
// table. Catalogs are read-only after initialization; updating them means
// building a new Catalog and invalidating the engine caches.
package patterns

import "regexp"

// Version identifies the built-in catalog revision. Bump when any list below
// changes so cached results can be tied to the catalog that produced them.
const Version = "2025.09"

// Catalog bundles every detector family's reference data. A single Catalog is
// shared read-only across all detectors and the matcher.
type Catalog struct {
	Version string

	// Script analysis. MaliciousScript is ranked: the first five patterns
	// are the critical tier, the next five the high tier, the remainder
	// medium.
	MaliciousScript []*regexp.Regexp
	Obfuscation     []*regexp.Regexp
	NetworkCall     []*regexp.Regexp
	SystemAccess    []*regexp.Regexp
	CryptoMining    []string

	// Author / maintainer analysis.
	DisposableEmailDomains []string
	SuspiciousEmail        []*regexp.Regexp
	SuspiciousNameParts    []string
	GeneratedName          []*regexp.Regexp

	// Metadata analysis.
	SuspiciousWords  []string
	MaliciousWords   []string
	MarketingPhrases []string
	AttackRepoWords  []string
	UnusualLicenses  []string
	FakeOfficialName *regexp.Regexp

	// Typosquatting reference set and substitution table.
	PopularPackages []string
	// CharSubstitutions maps a look-alike sequence to the sequences it
	// imitates; the matcher rewrites look-alikes in the candidate toward the
	// reference name, never the other way.
	CharSubstitutions map[string][]string

	// Homograph confusables: non-Latin rune -> the Latin rune it imitates.
	Confusables map[rune]rune

	// Brand jacking.
	Brands        []string
	BrandSuffixes []string

	// Dependency confusion.
	InternalScopes   []string
	CorporateSuffix  []string
	InternalNameHint []string

	// Supply-chain injection.
	DelayedExec    []*regexp.Regexp
	ConditionalEnv []*regexp.Regexp
	OutboundNet    []*regexp.Regexp
	CredentialPath []*regexp.Regexp

	// Steganography.
	Base64Run      *regexp.Regexp
	HexEscapeRun   *regexp.Regexp
	BufferAPI      *regexp.Regexp
	CompressionAPI *regexp.Regexp
	LongString     *regexp.Regexp

	// Version confusion.
	AttackVersionPrefixes []string

	// Behavioral anomaly.
	ExecutableSuffixes []string
}

var defaultCatalog = &Catalog{
	Version: Version,

	MaliciousScript: compileAll(
		// Critical tier (rank 0-4).
		`curl\s+[^|;&]*https?://`,
		`wget\s+[^|;&]*https?://`,
		`(?:curl|wget)[^|]*\|\s*(?:ba)?sh`,
		`rm\s+-rf\s+[/~]`,
		`nc\s+(?:-[a-z]+\s+)*\d{1,3}(?:\.\d{1,3}){3}`,
		// High tier (rank 5-9).
		`eval\s*\(\s*(?:atob|Buffer\.from)`,
		`child_process`,
		`\bexec(?:Sync)?\s*\(`,
		`base64\s+(?:-d|--decode)`,
		`powershell\s+(?:-e|-enc|-encodedcommand)`,
		// Medium tier (rank 10+).
		`chmod\s+\+x`,
		`/dev/tcp/`,
		`python\s+-c\s`,
		`node\s+-e\s`,
		`\.\s*/tmp/`,
	),
	Obfuscation: compileAll(
		`\beval\s*\(`,
		`new\s+Function\s*\(`,
		`\batob\s*\(`,
		`\bbtoa\s*\(`,
		`\\x[0-9a-fA-F]{2}`,
		`String\.fromCharCode`,
		`[A-Za-z0-9+/]{60,}={0,2}`,
	),
	NetworkCall: compileAll(
		`https?://\d{1,3}(?:\.\d{1,3}){3}`,
		`\bfetch\s*\(`,
		`http\.request`,
		`\bnet\.connect`,
		`\bcurl\b`,
		`\bwget\b`,
		`websocket`,
	),
	SystemAccess: compileAll(
		`process\.env`,
		`os\.homedir`,
		`fs\.(?:readFile|writeFile|readdir|unlink)`,
		`require\s*\(\s*['"]fs['"]`,
		`/etc/(?:passwd|shadow|hosts)`,
		`\$HOME\b`,
		`%USERPROFILE%`,
	),
	CryptoMining: []string{
		"coinhive", "cryptonight", "stratum+tcp", "xmrig", "minerd",
		"monero", "hashrate", "nicehash",
	},

	DisposableEmailDomains: []string{
		"mailinator.com", "guerrillamail.com", "10minutemail.com",
		"tempmail.com", "temp-mail.org", "throwaway.email",
		"yopmail.com", "sharklasers.com", "dispostable.com",
	},
	SuspiciousEmail: compileAll(
		`(?i)^[a-z]{1,3}\d{4,}@`,
		`(?i)^(?:test|admin|noreply|fake|anon)[\w.-]*@`,
		`(?i)@(?:example|test|localhost)\.`,
		`(?i)^[a-z0-9]{16,}@`,
	),
	SuspiciousNameParts: []string{
		"hacker", "h4ck", "pwn", "exploit", "inject", "payload",
		"xXx", "darkweb", "anon",
	},
	GeneratedName: compileAll(
		`^[a-z]+-[a-z]+-\d{4}$`,
		`(?i)^user\d+$`,
		`^[a-z]{2,4}\d{6,}$`,
	),

	SuspiciousWords: []string{
		"hack", "crack", "keygen", "bypass", "stealer", "grabber",
		"undetected", "fud", "silent", "hidden", "backdoor",
	},
	MaliciousWords: []string{
		"credential stealer", "keylogger", "password grabber",
		"token grabber", "rat ", "botnet",
	},
	MarketingPhrases: []string{
		"100% safe", "totally legit", "virus free", "no virus",
		"guaranteed undetectable", "best in the world",
	},
	AttackRepoWords: []string{
		"malware", "exploit", "payload", "stealer", "grabber", "keylog",
		"botnet", "ransom",
	},
	UnusualLicenses: []string{
		"WTFPL", "Beerware", "JSON", "none", "UNLICENSED", "DBAD",
	},
	FakeOfficialName: regexp.MustCompile(`(?i)(?:^official-|-official$|^verified-|-verified$)`),

	PopularPackages: []string{
		"react", "react-dom", "vue", "angular", "svelte", "next",
		"express", "koa", "fastify", "axios", "node-fetch", "got",
		"lodash", "underscore", "ramda", "moment", "dayjs", "date-fns",
		"chalk", "colors", "commander", "yargs", "inquirer", "ora",
		"webpack", "rollup", "vite", "esbuild", "babel-core", "typescript",
		"eslint", "prettier", "jest", "mocha", "chai", "vitest",
		"request", "superagent", "ws", "socket.io", "cors", "body-parser",
		"dotenv", "uuid", "nanoid", "classnames", "prop-types", "redux",
		"rxjs", "zod", "joi", "ajv", "mongoose", "sequelize", "prisma",
		"pg", "mysql", "redis", "ioredis", "bluebird", "async",
		"fs-extra", "glob", "rimraf", "mkdirp", "semver", "minimist",
		"debug", "winston", "pino", "morgan", "passport", "jsonwebtoken",
		"bcrypt", "crypto-js", "node-sass", "sass", "less", "stylus",
		"tailwindcss", "postcss", "autoprefixer", "styled-components",
	},
	CharSubstitutions: map[string][]string{
		"0":  {"o"},
		"1":  {"l", "i"},
		"5":  {"s"},
		"3":  {"e"},
		"@":  {"a"},
		"rn": {"m"},
		"vv": {"w"},
		"cl": {"d"},
	},

	Confusables: map[rune]rune{
		// Cyrillic look-alikes.
		'а': 'a', 'е': 'e', 'о': 'o', 'р': 'p', 'с': 'c', 'х': 'x',
		'у': 'y', 'і': 'i', 'ѕ': 's', 'ј': 'j', 'һ': 'h', 'ԁ': 'd',
		'ɡ': 'g', 'ԛ': 'q', 'ԝ': 'w',
		// Greek look-alikes.
		'ο': 'o', 'ν': 'v', 'α': 'a', 'ρ': 'p', 'τ': 't', 'υ': 'u',
		'κ': 'k', 'η': 'n',
	},

	Brands: []string{
		"google", "facebook", "microsoft", "amazon", "apple", "paypal",
		"stripe", "github", "gitlab", "slack", "discord", "twilio",
		"cloudflare", "mozilla", "adobe", "oracle", "ibm", "netflix",
	},
	BrandSuffixes: []string{
		"-sdk", "-official", "-api", "-client", "-support", "-team",
		"-secure", "-auth", "-login",
	},

	InternalScopes: []string{
		"@internal", "@corp", "@company", "@private", "@intranet",
		"@dev", "@staging", "@prod",
	},
	CorporateSuffix: []string{
		"-corp", "-inc", "-llc", "-ltd", "-gmbh", "-labs", "-internal",
	},
	InternalNameHint: []string{
		"internal", "private", "intranet", "corp-", "-corp", "company-",
	},

	DelayedExec: compileAll(
		`setTimeout\s*\(`,
		`setInterval\s*\(`,
		`process\.nextTick`,
		`setImmediate\s*\(`,
	),
	ConditionalEnv: compileAll(
		`if\s*\([^)]*process\.env`,
		`os\.platform\s*\(`,
		`process\.platform`,
		`(?i)\bCI\b\s*(?:===?|!==?)`,
	),
	OutboundNet: compileAll(
		`https?://[^\s'"]+`,
		`\bfetch\s*\(`,
		`http\.request`,
		`dns\.(?:lookup|resolve)`,
		`net\.(?:connect|createConnection)`,
	),
	CredentialPath: compileAll(
		`\.ssh(?:/|\\)`,
		`\.aws(?:/|\\)credentials`,
		`\.npmrc`,
		`\.gitconfig`,
		`/etc/passwd`,
		`(?i)keychain`,
		`(?i)(?:id_rsa|id_ed25519)`,
	),

	Base64Run:      regexp.MustCompile(`[A-Za-z0-9+/]{40,}={0,2}`),
	HexEscapeRun:   regexp.MustCompile(`(?:\\x[0-9a-fA-F]{2}){10,}`),
	BufferAPI:      regexp.MustCompile(`Buffer\.from\s*\(|\batob\s*\(|\bbtoa\s*\(`),
	CompressionAPI: regexp.MustCompile(`zlib\.|gzip|\binflate|\bdeflate|\bunzip`),
	LongString:     regexp.MustCompile(`(?:'[^']{200,}'|"[^"]{200,}")`),

	AttackVersionPrefixes: []string{"999.", "666.", "1337."},

	ExecutableSuffixes: []string{
		".exe", ".dll", ".bat", ".cmd", ".scr", ".sh", ".bin", ".msi",
	},
}

// Default returns the built-in catalog. The returned value is shared; callers
// must treat it as read-only.
func Default() *Catalog { return defaultCatalog }

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, regexp.MustCompile(e))
	}
	return out
}
