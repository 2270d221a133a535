package slip

var FormatAmount = formatAmount
