package ai

const decisionPrompt = `You review prospect company records before outreach.
Decide whether the record below lacks information that a web search of the
French company registries could add (description, industry, size, revenue,
location).

Company record (JSON):
%s

Return only a JSON object: {"result": true} if the record should be enriched,
{"result": false} if it is complete enough.`

const describePrompt = `Write a factual description of the company "%s" in
at most 150 words, using only the web content below. Mention what the company
does, its sector, where it is based and its size when the content says so. If
the content is empty or unrelated, say what can reasonably be inferred from
the name and keep it short.

Web content:
%s

Return the description as plain text, without a heading.`

const researchPrompt = `Find public information about the French company "%s":
activity, sector, headquarters, number of employees and revenue. Return the
raw information as text.`

const organizationInfoPrompt = `Extract structured company information from the description below.
Return a valid JSON object with these fields:
- industry: array of strings (sectors of activity)
- compatibility: string (a number from 0 to 100, how promising the company is as a client)
- location: array of strings (cities or regions)
- size: string (number of employees, "0" if unknown)
- revenue: string (annual revenue, "0" if unknown)

Description:
%s`

const contactPrompt = `The following web search result was returned while looking for
employees of the company "%s".

Title: %s
URL: %s
Snippet: %s

Extract the person it describes. Return a valid JSON object with these fields:
- name: string
- title: string (job title)
- email: array of strings
- phone: string
- profile_url: array of strings

If a field cannot be determined, use an empty string or an empty array.`

const targetTitlesPrompt = `Here is the profile of a freelancer looking for clients.

Job title: %s
Location: %s
Bio: %s
Work experience (JSON):
%s

List the job titles of the people inside client companies who would decide to
hire this freelancer (for example "CTO" or "Head of Data"). Return at most 5.
Return a valid JSON object: {"job_titles": ["..."]}`

const scorePrompt = `Rate how well the job below matches the candidate profile, from 0
(no match) to 100 (perfect match). Consider skills, seniority, experience and
location.

Candidate:
- job title: %s
- location: %s
- bio: %s
- work experience (JSON): %s

Job:
- location: %s
- description:
%s

Return only a JSON object: {"score": <integer 0-100>}`
