package mcpserver

// GapSyntaxContract describes the gap-fill mini-language of cloze texts and
// the LiaScript it is rewritten to.
const GapSyntaxContract = `# Gap Syntax Contract

Cloze texts mark gaps with brace directives. Everything outside a directive
is copied to the output byte for byte.

## Directives

` + "```" + `text
{T: [answer, alternative]}      text gap, the learner types the answer
{C: [#right, wrong, wrong]}     choice gap, the learner picks one option
` + "```" + `

- The directive starts with ` + "`{T:`" + ` or ` + "`{C:`" + `; whitespace may follow the
  opening brace and the colon.
- Options are separated by commas. Commas inside nested braces (for example
  ` + "`$$\\frac{a,b}{c}$$`" + `) do not split options.
- The square brackets around the option list are optional.
- In a choice gap, ` + "`#`" + ` marks the correct option. In a text gap it is
  part of the answer.
- A directive may appear inside unrelated braces such as math; the outer
  braces stay untouched.

## LiaScript rendering

| Input | Output |
|---|---|
| ` + "`{T: [word]}`" + ` | ` + "`[[ word]]`" + ` |
| ` + "`{C: [#a, b]}`" + ` | ` + "`[[(a)| b]]`" + ` |
| ` + "`{T: [a, b]}`" + ` | ` + "`[[ a]]`" + `, reported as ` + "`unsupportedAnswerType`" + ` |
| ` + "`{T: [#1]}`" + ` | ` + "`[[ #1]]`" + ` |
| ` + "`{T: []}`" + ` | unchanged, reported as ` + "`emptyGap`" + ` |

## Limits

1. Text gaps keep only their first answer; LiaScript has no alternatives for
   typed gaps.
2. Empty choice options are dropped.
3. A directive that is never closed is kept as plain text and reported as
   ` + "`unterminatedGap`" + `.
4. A gap without any answer is kept as plain text and reported as
   ` + "`emptyGap`" + `.
5. Directives nested inside another directive are treated as answer text.
`
