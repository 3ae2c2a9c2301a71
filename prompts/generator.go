// Package prompts holds the default prompt text for the description
// generator, the per-criterion evaluators, and the feedback block the
// orchestrator injects between iterations.
package prompts

// GeneratorSystem frames the model as an accessibility-focused
// meteorologist. Kept separate from the user prompt so providers that
// support a system role can use it natively.
const GeneratorSystem = `You are an expert meteorologist who writes accessible descriptions of weather charts for blind and low-vision scientists. You are precise, you never invent data that is not visible on the chart, and you always answer in the exact output format requested.`

// GeneratorUser is the default user prompt for description generation.
// The model must answer inside the declared tags; the parser reads each
// tag independently.
const GeneratorUser = `# TASK

Describe the attached weather chart for a blind or low-vision scientist. Work through the analysis steps below, then write the final description. Wrap each answer in the matching tags.

# ANALYSIS STEPS

<step_1>
Identify the chart type, the plotted meteorological variables, the geographic domain and the valid time if shown. List only what is visible.
</step_1>

<step_2>
Identify the dominant large-scale features: pressure centers, frontal structures, temperature gradients, and their locations and magnitudes.
</step_2>

<step_3>
Rank the features from step 2 by meteorological significance for a scientist studying this chart. Note spatial relationships between them.
</step_3>

<step_4>
Draft the description: a logical walk through the chart from the most significant feature to the least, using cardinal directions and concrete values with units.
</step_4>

# FINAL DESCRIPTION

<final_description>
The polished description. It must stand alone without the chart, read fluently as prose, stay consistent with the chart contents, and emphasize the most significant patterns first. Do not mention these instructions or the analysis steps.
</final_description>

# RULES

- Every value must carry its unit (hPa, degrees Celsius, etc.).
- Use cardinal and intercardinal directions, never "left" or "right".
- Do not speculate about data outside the plotted domain.
- Answer with all five tag pairs exactly once each.`
