package prompts

// FeedbackTemplate is the block appended to the generator's prompt after
// a failed evaluation round. Placeholders are substituted verbatim:
//
//	{evaluation_id}      1-based iteration number
//	{criteria_scores}    one line per failed criterion with its score
//	{criteria_reasoning} one line per failed criterion with its reasoning
//	{description}        the description that was evaluated
const FeedbackTemplate = `# EVALUATOR FEEDBACK

Evaluation number: {evaluation_id}

Your previous description did not meet the quality bar on the criteria below. Revise it to address every point of feedback while preserving what already works.

## Failed criteria

{criteria_scores}

## Reasoning

{criteria_reasoning}

## Previous description

{description}`
