package engine

// hintTable holds localized re-prompt strings, keyed by hint key then
// language. These are the only strings ever shown to end users; nothing
// here includes internal identifiers.
var hintTable = map[string]map[string]string{
	"welcome_prompt": {
		"ru": "Здравствуйте! Расскажите, что нужно перевезти.",
		"en": "Hello! Tell us what you need to move.",
		"he": "שלום! ספרו לנו מה צריך להעביר.",
	},
	"cargo_prompt": {
		"ru": "Опишите, что нужно перевезти (например: холодильник, диван).",
		"en": "Describe what needs to be moved (e.g. fridge, sofa).",
		"he": "תארו מה צריך להעביר (למשל: מקרר, ספה).",
	},
	"volume_prompt": {
		"ru": "Сколько комнат нужно перевезти? (маленькая/средняя/большая/очень большая)",
		"en": "How many rooms worth of belongings? (small/medium/large/extra-large)",
		"he": "כמה חדרים יש להעביר? (קטן/בינוני/גדול/ענק)",
	},
	"volume_invalid": {
		"ru": "Пожалуйста, выберите: маленькая, средняя, большая или очень большая.",
		"en": "Please choose: small, medium, large, or extra-large.",
		"he": "נא לבחור: קטן, בינוני, גדול או ענק.",
	},
	"pickup_count_prompt": {
		"ru": "Сколько точек погрузки? (1, 2 или 3)",
		"en": "How many pickup locations? (1, 2 or 3)",
		"he": "כמה נקודות איסוף? (1, 2 או 3)",
	},
	"pickup_count_invalid": {
		"ru": "Пожалуйста, укажите 1, 2 или 3.",
		"en": "Please enter 1, 2 or 3.",
		"he": "נא לציין 1, 2 או 3.",
	},
	"addr_from_prompt": {
		"ru": "Укажите адрес погрузки (город, улица).",
		"en": "Enter the pickup address (city, street).",
		"he": "נא לציין את כתובת האיסוף (עיר, רחוב).",
	},
	"floor_from_prompt": {
		"ru": "Какой этаж и есть ли лифт? (например: 3 без лифта)",
		"en": "Which floor, and is there an elevator? (e.g. 3 no elevator)",
		"he": "איזו קומה, ויש מעלית? (למשל: 3 בלי מעלית)",
	},
	"floor_invalid": {
		"ru": "Не удалось распознать этаж. Например: 3 без лифта.",
		"en": "Could not parse the floor. Try e.g. 3 no elevator.",
		"he": "לא הצלחנו לפענח את הקומה. למשל: 3 בלי מעלית.",
	},
	"addr_to_prompt": {
		"ru": "Укажите адрес доставки (город, улица).",
		"en": "Enter the destination address (city, street).",
		"he": "נא לציין את כתובת היעד (עיר, רחוב).",
	},
	"floor_to_prompt": {
		"ru": "Какой этаж на новом месте и есть ли лифт?",
		"en": "Which floor at the destination, and is there an elevator?",
		"he": "איזו קומה ביעד, ויש מעלית?",
	},
	"date_prompt": {
		"ru": "На какую дату планируется переезд? (завтра / на этой неделе / другая дата)",
		"en": "When would you like to move? (tomorrow / this week / another date)",
		"he": "מתי לתכנן את המעבר? (מחר / השבוע / תאריך אחר)",
	},
	"date_too_soon": {
		"ru": "Эта дата уже прошла. Укажите дату не раньше сегодняшней.",
		"en": "That date has already passed. Pick today or later.",
		"he": "התאריך כבר עבר. נא לבחור תאריך מהיום ואילך.",
	},
	"date_too_far": {
		"ru": "Мы принимаем заявки не более чем за 180 дней. Укажите более близкую дату.",
		"en": "We only take bookings up to 180 days ahead. Pick a closer date.",
		"he": "אנחנו מקבלים הזמנות עד 180 יום קדימה בלבד. נא לבחור תאריך קרוב יותר.",
	},
	"specific_date_prompt": {
		"ru": "Введите дату в формате ГГГГ-ММ-ДД.",
		"en": "Enter the date as YYYY-MM-DD.",
		"he": "נא להזין תאריך בפורמט YYYY-MM-DD.",
	},
	"date_invalid": {
		"ru": "Не удалось распознать дату. Формат: ГГГГ-ММ-ДД.",
		"en": "Could not parse the date. Use YYYY-MM-DD.",
		"he": "לא הצלחנו לפענח את התאריך. פורמט: YYYY-MM-DD.",
	},
	"time_slot_prompt": {
		"ru": "Выберите время: утро, день, вечер или точное время.",
		"en": "Choose a time: morning, day, evening, or an exact time.",
		"he": "בחרו שעה: בוקר, צהריים, ערב, או שעה מדויקת.",
	},
	"time_slot_invalid": {
		"ru": "Пожалуйста, выберите: утро, день, вечер или точное время.",
		"en": "Please choose: morning, day, evening, or exact time.",
		"he": "נא לבחור: בוקר, צהריים, ערב או שעה מדויקת.",
	},
	"exact_time_prompt": {
		"ru": "Укажите точное время (например: 14:30).",
		"en": "Enter the exact time (e.g. 14:30).",
		"he": "נא לציין שעה מדויקת (למשל 14:30).",
	},
	"exact_time_invalid": {
		"ru": "Не удалось распознать время. Формат: ЧЧ:ММ.",
		"en": "Could not parse the time. Use HH:MM.",
		"he": "לא הצלחנו לפענח את השעה. פורמט: HH:MM.",
	},
	"photo_menu_prompt": {
		"ru": "Хотите прислать фото вещей? (да/нет)",
		"en": "Would you like to send photos of the items? (yes/no)",
		"he": "רוצים לשלוח תמונות של הפריטים? (כן/לא)",
	},
	"photo_wait_prompt": {
		"ru": "Присылайте фото. Когда закончите, напишите «готово».",
		"en": "Send photos now. Type \"done\" when finished.",
		"he": "שלחו תמונות. כשתסיימו כתבו \"סיימתי\".",
	},
	"extras_prompt": {
		"ru": "Нужны ли доп. услуги: грузчики, сборка/разборка, упаковка? Перечислите или напишите «нет».",
		"en": "Any extras needed: movers, assembly, packing? List them or say \"no\".",
		"he": "יש צורך בשירותים נוספים: סבלים, פירוק/הרכבה, אריזה? פרטו או כתבו \"לא\".",
	},
	"estimate_confirm_prompt": {
		"ru": "Подтвердите заявку, чтобы мы передали её оператору. (да/сброс)",
		"en": "Confirm to send this to our team. (yes/reset)",
		"he": "אשרו כדי להעביר את הבקשה לצוות שלנו. (כן/איפוס)",
	},
	"estimate_suppressed": {
		"ru": "Стоимость будет уточнена оператором.",
		"en": "The price will be confirmed by our team.",
		"he": "המחיר יאושר על ידי הצוות שלנו.",
	},
	"done_message": {
		"ru": "Спасибо! Ваша заявка передана оператору.",
		"en": "Thank you! Your request has been sent to our team.",
		"he": "תודה! הבקשה שלכם נשלחה לצוות שלנו.",
	},
	"stale_resume_hint": {
		"ru": "У вас есть незавершённая заявка. Можете продолжить или написать «заново», чтобы начать сначала.",
		"en": "You have an unfinished request. You can continue or write \"reset\" to start over.",
		"he": "יש לך בקשה שלא הושלמה. אפשר להמשיך או לכתוב \"מחדש\" כדי להתחיל מחדש.",
	},
	"confirm_addresses_prompt": {
		"ru": "Мы получили ваши данные с сайта. Все верно? (да/нет)",
		"en": "We received your details from the site. Is this correct? (yes/no)",
		"he": "קיבלנו את הפרטים שלכם מהאתר. הכל נכון? (כן/לא)",
	},
}

func hint(key, lang string) string {
	table, ok := hintTable[key]
	if !ok {
		return ""
	}
	if s, ok := table[lang]; ok {
		return s
	}
	return table["ru"]
}
