package llm

const rootsPrompt = `You are a causal reasoning system. Given a set of variables describing a system, identify which variables are ROOT CAUSES: variables that influence others but are not themselves caused by any variable in the set.

Variables:
%s

For each root cause, provide:
- variable: the exact variable name from the list
- confidence: how certain you are this is a root cause (0.0 to 1.0)
- reasoning: one sentence explaining why

Respond ONLY with a JSON array. No markdown, no explanation. Example:
[{"variable":"server_load","confidence":0.9,"reasoning":"Load is driven by external traffic, not by the other variables."}]

If no variable qualifies as a root cause, respond with an empty array: []`

const effectsPrompt = `You are a causal reasoning system. Identify which of the remaining variables are DIRECT EFFECTS of the given variable: the variable causes them without any intermediate variable from the set in between.

Variable under consideration:
%s

Remaining variables (only these may be named as effects):
%s

Current graph structure:
%s

For each direct effect, provide:
- target: the exact variable name from the remaining list
- confidence: how certain you are about this causal link (0.0 to 1.0)
- mechanism: one sentence describing how the cause produces the effect

Respond ONLY with a JSON array. No markdown, no explanation. Example:
[{"target":"response_time","confidence":0.85,"mechanism":"Higher load saturates worker threads, increasing latency."}]

If the variable has no direct effects among the remaining variables, respond with an empty array: []`

const reconcilePrompt = `You are a causal reasoning system reviewing one of your own earlier claims against observational evidence that conflicts with it.

Claimed causal link: %s
Proposed mechanism: %s
Why it was set aside: %s

%s

Current graph structure:
%s

Decide:
- CONFIRM: the causal claim stands despite the evidence (e.g. a suppressor or confounder explains the weak signal)
- REJECT: the evidence is right and the claim should be withdrawn
- MODIFY: the claim holds in a revised form (different mechanism or confidence)

Respond ONLY with JSON, no markdown:
{"verdict":"CONFIRM|REJECT|MODIFY","confidence":0.0,"mechanism":"revised mechanism if MODIFY, else empty","explanation":"brief reason","alternative":"alternative explanation for the observed data, if any"}`

const pathPrompt = `You are a causal reasoning system. Assess whether this causal chain is plausible end to end: each step must transmit influence to the next, and the full chain must make sense as a whole.

Causal chain:
%s

Respond ONLY with JSON, no markdown:
{"plausible":true,"plausibility":0.0,"reasoning":"brief assessment"}`
