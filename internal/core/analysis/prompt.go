package analysis

import (
	"fmt"
	"strings"
)

const enhancePromptTemplate = `다음은 카페 메뉴판 사진에서 OCR로 추출한 텍스트와 그 번역입니다.
OCR 오류로 잘리거나 깨진 글자를 보정해서 실제 메뉴 이름만 골라 주세요.

규칙:
- 설명, 가격, 제목은 제외합니다.
- 각 메뉴 이름은 50자 이하로 씁니다.
- 다른 설명 없이 JSON 문자열 배열 하나만 출력합니다. 예: ["아메리카노", "카페 라떼"]

OCR 텍스트:
%s

번역 텍스트:
%s`

// BuildPrompt 以 OCR 與翻譯文字組成補完提示
func BuildPrompt(extracted, translated string) string {
	translated = strings.TrimSpace(translated)
	if translated == "" {
		translated = "(없음)"
	}
	return fmt.Sprintf(enhancePromptTemplate, strings.TrimSpace(extracted), translated)
}
