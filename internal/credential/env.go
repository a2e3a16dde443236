package credential

import "os"

// Alias lists are ordered; the first set variable wins and later aliases are
// ignored. The names and their order are load-bearing for deployments that
// already export them, so they must not be reordered or extended carelessly.
// A region qualifier selects a separate list, never a fallback chain into the
// unqualified one.

type aliasKey struct {
	provider string
	region   string
}

var apiKeyAliases = map[aliasKey][]string{
	{"openai", ""}:       {"OPENAI_API_KEY"},
	{"azure", ""}:        {"AZURE_API_KEY"},
	{"anthropic", ""}:    {"ANTHROPIC_API_KEY"},
	{"gemini", ""}:       {"GEMINI_API_KEY"},
	{"cohere", ""}:       {"COHERE_API_KEY"},
	{"assemblyai", ""}:   {"ASSEMBLYAI_API_KEY"},
	{"assemblyai", "eu"}: {"ASSEMBLYAI_EU_API_KEY"},
	{"watsonx", ""}:      {"WATSONX_APIKEY", "WATSONX_API_KEY", "WX_API_KEY"},
}

var baseURLAliases = map[aliasKey][]string{
	{"azure", ""}:   {"AZURE_API_BASE"},
	{"watsonx", ""}: {"WATSONX_API_BASE", "WATSONX_URL", "WX_URL", "WML_URL"},
}

var tokenAliases = map[aliasKey][]string{
	{"watsonx", ""}: {"WATSONX_TOKEN", "WX_TOKEN"},
}

var projectIDAliases = map[aliasKey][]string{
	{"watsonx", ""}: {"WATSONX_PROJECT_ID", "WX_PROJECT_ID", "WML_PROJECT_ID"},
}

var spaceIDAliases = map[aliasKey][]string{
	{"watsonx", ""}: {"WATSONX_DEPLOYMENT_SPACE_ID", "WX_SPACE_ID"},
}

var apiVersionAliases = map[aliasKey][]string{
	{"watsonx", ""}: {"WATSONX_API_VERSION"},
}

// AWS credentials back the bedrock provider only.
var (
	awsAccessKeyAliases    = []string{"AWS_ACCESS_KEY_ID"}
	awsSecretKeyAliases    = []string{"AWS_SECRET_ACCESS_KEY"}
	awsSessionTokenAliases = []string{"AWS_SESSION_TOKEN"}
	awsRegionAliases       = []string{"AWS_REGION_NAME"}
)

// firstEnv returns the value of the first set variable in names.
func firstEnv(names []string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// fromEnv builds the environment layer of a credential for a provider and
// region qualifier.
func fromEnv(provider, region string) *Credential {
	key := aliasKey{provider: provider, region: region}

	cred := &Credential{
		Provider:   provider,
		Region:     region,
		APIKey:     firstEnv(apiKeyAliases[key]),
		Token:      firstEnv(tokenAliases[key]),
		BaseURL:    firstEnv(baseURLAliases[key]),
		APIVersion: firstEnv(apiVersionAliases[key]),
		ProjectID:  firstEnv(projectIDAliases[key]),
		SpaceID:    firstEnv(spaceIDAliases[key]),
	}

	if provider == "bedrock" {
		cred.AccessKeyID = firstEnv(awsAccessKeyAliases)
		cred.SecretAccessKey = firstEnv(awsSecretKeyAliases)
		cred.SessionToken = firstEnv(awsSessionTokenAliases)
		if cred.Region == "" {
			cred.Region = firstEnv(awsRegionAliases)
		}
	}

	return cred
}
