package everytime

import "encoding/xml"

// 에브리타임 XML API 응답. 값은 전부 요소 속성으로 내려옵니다.
// <response>
//   <moim ... />
//   <article id="..." title="..." text="..." created_at="..."
//            posvote="3" comment="1" scrap_count="0" />
// </response>
// 결과가 한 건이면 목록 래핑 없이 요소 하나만 오는데, encoding/xml의
// 반복 요소 디코딩은 그 경우도 길이 1 슬라이스로 처리합니다.
type articleListResponse struct {
	XMLName  xml.Name     `xml:"response"`
	Articles []apiArticle `xml:"article"`
}

// 숫자 속성은 일단 문자열로 받고 toArticle에서 기본값 0을 적용합니다.
// 속성이 비어 있거나 빠져 있어도 페이지 전체를 버리지 않기 위함입니다.
type apiArticle struct {
	ID         string `xml:"id,attr"`
	Title      string `xml:"title,attr"`
	Text       string `xml:"text,attr"`
	CreatedAt  string `xml:"created_at,attr"`
	Posvote    string `xml:"posvote,attr"`
	Comment    string `xml:"comment,attr"`
	ScrapCount string `xml:"scrap_count,attr"`
}

// <response>
//   <article ... />
//   <poll />
//   <comment id="..." text="..." user_nickname="..." created_at="..." />
// </response>
type commentListResponse struct {
	XMLName  xml.Name     `xml:"response"`
	Comments []apiComment `xml:"comment"`
}

type apiComment struct {
	ID           string `xml:"id,attr"`
	Text         string `xml:"text,attr"`
	UserNickname string `xml:"user_nickname,attr"`
	CreatedAt    string `xml:"created_at,attr"`
}
