package analysis

const chunkSystemPrompt = `You are an analyst reading a segment of a developer community Q&A transcript about a functional effect library.

From the segment, extract:
- commonQuestions: questions the community keeps asking, phrased generically
- effectPatterns: recurring library-usage patterns. For each: pattern (short name), description, exampleMessageIds (the [bracketed] message ids that evidence it)
- painPoints: friction, confusion, or missing documentation people ran into
- bestPractices: advice that experienced users gave and others confirmed
- codeExamples: representative snippets worth keeping. For each: pattern (what it demonstrates), code (verbatim), context (one line on when to use it)

Respond with ONLY a JSON object:
{"commonQuestions": [...], "effectPatterns": [...], "painPoints": [...], "bestPractices": [...], "codeExamples": [...]}

Empty arrays are fine. No prose outside the JSON.`

const chunkUserPrompt = `Transcript segment (each message is prefixed with its [id], author and timestamp):

%s`

const aggregateSystemPrompt = `You are an analyst synthesizing the per-segment findings from a full developer community Q&A transcript into one report.

You receive a JSON array of partial analyses in chronological order. Write a single markdown report that:
- opens with a short executive summary
- consolidates the common questions into themes, most frequent first
- describes the recurring usage patterns, merging duplicates across segments
- lists the pain points worth fixing, with how often they recurred
- collects the best practices into an actionable checklist
- includes the strongest code examples, deduplicated, in fenced code blocks

Respond with ONLY the markdown report. Do not wrap it in JSON.`

const aggregateUserPrompt = `Partial analyses, ordered by segment (%d segments, %d messages total):

%s`
