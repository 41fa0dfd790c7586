package luhn

// CardLength 卡号总长度（15 位主体 + 1 位校验位）
const CardLength = 16

// CheckDigit 计算 15 位数字串的校验位
//
// 从左往右（下标从 0 开始），偶数下标的数字乘 2，结果大于 9 的减 9，
// 然后把 15 位数字全部相加，校验位 = (10 - sum%10) % 10。
//
// 调用方需保证 digits 全部为数字字符，长度为 CardLength-1。
func CheckDigit(digits string) byte {
	sum := 0
	for i := 0; i < len(digits); i++ {
		d := int(digits[i] - '0')
		if i%2 == 0 {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
	}
	return byte('0' + (10-sum%10)%10)
}

// IsValid 校验卡号：长度必须为 16 位、全部为数字，且最后一位等于前 15 位的校验位
// 格式不对直接返回 false，不当作错误处理
func IsValid(number string) bool {
	if len(number) != CardLength || !IsDigits(number) {
		return false
	}
	return number[CardLength-1] == CheckDigit(number[:CardLength-1])
}

// IsDigits 非空且全部为 ASCII 数字
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
