package prompts

import "fmt"

// EvaluatorSystem frames the model as a strict reviewer. All criterion
// scorers share it.
const EvaluatorSystem = `You are a strict reviewer of weather chart descriptions written for blind and low-vision scientists. You grade one quality criterion at a time on an integer scale from 0 (unusable) to 5 (excellent). You justify your grade, then you answer in the exact output format requested.`

// outputContract is the shared tail of every criterion prompt. The score
// tag is mandatory, reasoning is read when present.
const outputContract = `# OUTPUT FORMAT

<reasoning>
Your justification in two or three sentences.
</reasoning>
<score>
A single integer from 0 to 5.
</score>`

const coherenceUser = `# CRITERION: COHERENCE

Grade how well the description is organized as a logical whole. A coherent description moves through the chart in a deliberate order, connects related features, and never forces the reader to backtrack to make sense of a sentence.

Score 5: the structure is effortless to follow from start to finish.
Score 3: the order is mostly sensible but at least one passage is disconnected or out of place.
Score 0: the sentences are an unordered collection of facts.

` + outputContract

const fluencyUser = `# CRITERION: FLUENCY

Grade the linguistic quality of the description in isolation from the chart. Consider grammar, word choice, sentence rhythm, and whether it reads naturally aloud, which matters for screen reader users.

Score 5: flawless, natural prose.
Score 3: understandable but with awkward phrasing or minor grammatical slips.
Score 0: broken language that obscures meaning.

` + outputContract

const consistencyUser = `# CRITERION: CONSISTENCY

Grade the factual agreement between the description and the attached chart. Every named feature, location, value and unit must match what the chart shows. Penalize invented features heavily, they are worse than omissions for a reader who cannot verify the chart.

Score 5: every claim checks out against the chart.
Score 3: claims are broadly right but at least one value or location is off.
Score 0: the description contradicts the chart or describes a different one.

` + outputContract

const relevanceUser = `# CRITERION: RELEVANCE

Grade whether the description emphasizes what a scientist would actually study on this chart. The most meteorologically significant patterns must come first and get the most words; trivia such as colorbar cosmetics must not displace them.

Score 5: the emphasis matches the chart's scientific content.
Score 3: the significant patterns are present but buried or underweighted.
Score 0: the description dwells on irrelevant detail and misses the main signal.

` + outputContract

var criterionUser = map[string]string{
	"coherence":   coherenceUser,
	"fluency":     fluencyUser,
	"consistency": consistencyUser,
	"relevance":   relevanceUser,
}

// CriterionUser returns the default evaluation prompt for the named
// criterion.
func CriterionUser(criterion string) (string, error) {
	p, ok := criterionUser[criterion]
	if !ok {
		return "", fmt.Errorf("prompts: no evaluation prompt for criterion %q", criterion)
	}
	return p, nil
}
