package pipeline

import "fmt"

// The prompts instruct the model to reason only from the statistics supplied
// with them, never from outside knowledge, so a chunk's narrative cannot
// drift away from its data.

func analysisPrompt(place string, s Summary) string {
	return fmt.Sprintf(`Based ONLY on the data provided in the CSV below for %s, summarize the population trends and centers. Do not use any external knowledge or statistics.
CSV:
%s`, place, s.CSV())
}

func policyPrompt(place string, s Summary) string {
	return fmt.Sprintf(`Based ONLY on the demographic summary CSV provided for %s, provide 3-5 detailed policy recommendations. For each, state the 'Problem' and a 'Specific Proposal'. Do not use external knowledge.
CSV:
%s`, place, s.CSV())
}

func livabilityPrompt(s Summary) string {
	return fmt.Sprintf(`Based ONLY on the summary statistics below for a region in New Zealand, rate its 'livability' on a scale of 1 to 100. Consider factors like population density (mean) and size (sum). A good score might represent a place that is neither too crowded nor too sparse. Output ONLY a single integer number and nothing else.
CSV:
%s`, s.CSV())
}
